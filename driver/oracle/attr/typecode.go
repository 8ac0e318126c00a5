package attr

import (
	"strconv"
	"strings"
)

// TypeCode is the Oracle external type code of a described column.
type TypeCode int

const (
	TypeUnknown      TypeCode = 0
	TypeVarchar2     TypeCode = 1
	TypeNumber       TypeCode = 2
	TypeLong         TypeCode = 8
	TypeDate         TypeCode = 12
	TypeRaw          TypeCode = 23
	TypeLongRaw      TypeCode = 24
	TypeRowid        TypeCode = 69
	TypeChar         TypeCode = 96
	TypeBinaryFloat  TypeCode = 100
	TypeBinaryDouble TypeCode = 101
	TypeObject       TypeCode = 108
	TypeRef          TypeCode = 111
	TypeClob         TypeCode = 112
	TypeBlob         TypeCode = 113
	TypeBfile        TypeCode = 114
	TypeRefCursor    TypeCode = 116
	TypeJSON         TypeCode = 119
	TypeNestedTable  TypeCode = 122
	TypeTimestamp    TypeCode = 180
	TypeTimestampTZ  TypeCode = 181
	TypeIntervalYM   TypeCode = 182
	TypeIntervalDS   TypeCode = 183
	TypeURowid       TypeCode = 208
	TypeTimestampLTZ TypeCode = 231
	TypeBoolean      TypeCode = 252
)

var typeCodeByName = map[string]TypeCode{
	"VARCHAR2":                       TypeVarchar2,
	"NVARCHAR2":                      TypeVarchar2,
	"VARCHAR":                        TypeVarchar2,
	"CHAR":                           TypeChar,
	"NCHAR":                          TypeChar,
	"NUMBER":                         TypeNumber,
	"DECIMAL":                        TypeNumber,
	"INTEGER":                        TypeNumber,
	"FLOAT":                          TypeNumber,
	"BINARY_INTEGER":                 TypeNumber,
	"PLS_INTEGER":                    TypeNumber,
	"LONG":                           TypeLong,
	"DATE":                           TypeDate,
	"RAW":                            TypeRaw,
	"LONG RAW":                       TypeLongRaw,
	"ROWID":                          TypeRowid,
	"UROWID":                         TypeURowid,
	"BINARY_FLOAT":                   TypeBinaryFloat,
	"BFLOAT":                         TypeBinaryFloat,
	"BINARY_DOUBLE":                  TypeBinaryDouble,
	"DOUBLE":                         TypeBinaryDouble,
	"BDOUBLE":                        TypeBinaryDouble,
	"OBJECT":                         TypeObject,
	"NAMED TYPE":                     TypeObject,
	"REF":                            TypeRef,
	"CLOB":                           TypeClob,
	"NCLOB":                          TypeClob,
	"BLOB":                           TypeBlob,
	"BFILE":                          TypeBfile,
	"SYS_REFCURSOR":                  TypeRefCursor,
	"REF CURSOR":                     TypeRefCursor,
	"JSON":                           TypeJSON,
	"NESTED TABLE":                   TypeNestedTable,
	"VARRAY":                         TypeNestedTable,
	"TIMESTAMP":                      TypeTimestamp,
	"TIMESTAMP WITH TIME ZONE":       TypeTimestampTZ,
	"TIMESTAMP WITH LOCAL TIME ZONE": TypeTimestampLTZ,
	"INTERVAL YEAR TO MONTH":         TypeIntervalYM,
	"INTERVAL DAY TO SECOND":         TypeIntervalDS,
	"BOOLEAN":                        TypeBoolean,
}

// TypeCodeOf maps a driver type name (sql.ColumnType.DatabaseTypeName) to its type code.
// Precision qualifiers such as "TIMESTAMP(6)" are ignored.
func TypeCodeOf(name string) TypeCode {
	n := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(n, '('); i >= 0 {
		j := strings.IndexByte(n, ')')
		if j > i {
			n = strings.TrimSpace(n[:i] + n[j+1:])
		}
	}
	return typeCodeByName[n]
}

// otherTypeCode reads the type number out of a name such as "OTHER[2010]", which
// godror reports for a column type it has no name for.
func otherTypeCode(name string) (TypeCode, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "OTHER[") || !strings.HasSuffix(n, "]") {
		return TypeUnknown, false
	}
	v, err := strconv.Atoi(n[len("OTHER[") : len(n)-1])
	if err != nil {
		return TypeUnknown, false
	}
	return TypeCode(v), true
}

func (c TypeCode) String() string {
	switch c {
	case TypeVarchar2:
		return "VARCHAR2"
	case TypeNumber:
		return "NUMBER"
	case TypeLong:
		return "LONG"
	case TypeDate:
		return "DATE"
	case TypeRaw:
		return "RAW"
	case TypeLongRaw:
		return "LONG RAW"
	case TypeRowid:
		return "ROWID"
	case TypeChar:
		return "CHAR"
	case TypeBinaryFloat:
		return "BINARY_FLOAT"
	case TypeBinaryDouble:
		return "BINARY_DOUBLE"
	case TypeObject:
		return "OBJECT"
	case TypeRef:
		return "REF"
	case TypeClob:
		return "CLOB"
	case TypeBlob:
		return "BLOB"
	case TypeBfile:
		return "BFILE"
	case TypeRefCursor:
		return "REF CURSOR"
	case TypeJSON:
		return "JSON"
	case TypeNestedTable:
		return "NESTED TABLE"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeTimestampTZ:
		return "TIMESTAMP WITH TIME ZONE"
	case TypeIntervalYM:
		return "INTERVAL YEAR TO MONTH"
	case TypeIntervalDS:
		return "INTERVAL DAY TO SECOND"
	case TypeURowid:
		return "UROWID"
	case TypeTimestampLTZ:
		return "TIMESTAMP WITH LOCAL TIME ZONE"
	case TypeBoolean:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}
