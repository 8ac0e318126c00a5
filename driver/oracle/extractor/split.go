package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/actiontech/xtru/driver/common"
	"github.com/actiontech/xtru/driver/oracle/stmt"
	"github.com/actiontech/xtru/g"
)

const partitionQuery = `SELECT PARTITION_NAME FROM ALL_TAB_PARTITIONS WHERE TABLE_OWNER = '%s' AND TABLE_NAME = '%s' ORDER BY PARTITION_POSITION`

// rowidRangeQuery cuts the extents of a table into n groups of about the same
// number of extents and returns the ROWID bounds of every group.
const rowidRangeQuery = `SELECT DBMS_ROWID.ROWID_CREATE(1, O.DATA_OBJECT_ID, E.LO_FNO, E.LO_BLOCK, 0) LO_RID,
       DBMS_ROWID.ROWID_CREATE(1, O.DATA_OBJECT_ID, E.HI_FNO, E.HI_BLOCK, 32767) HI_RID
  FROM (SELECT GRP,
               MIN(RELATIVE_FNO) KEEP (DENSE_RANK FIRST ORDER BY RELATIVE_FNO, BLOCK_ID) LO_FNO,
               MIN(BLOCK_ID) KEEP (DENSE_RANK FIRST ORDER BY RELATIVE_FNO, BLOCK_ID) LO_BLOCK,
               MAX(RELATIVE_FNO) KEEP (DENSE_RANK LAST ORDER BY RELATIVE_FNO, BLOCK_ID) HI_FNO,
               MAX(BLOCK_ID + BLOCKS - 1) KEEP (DENSE_RANK LAST ORDER BY RELATIVE_FNO, BLOCK_ID) HI_BLOCK
          FROM (SELECT RELATIVE_FNO, BLOCK_ID, BLOCKS,
                       NTILE(%s) OVER (ORDER BY RELATIVE_FNO, BLOCK_ID) GRP
                  FROM DBA_EXTENTS
                 WHERE OWNER = '%s' AND SEGMENT_NAME = '%s' AND SEGMENT_TYPE = 'TABLE')
         GROUP BY GRP) E,
       (SELECT DATA_OBJECT_ID FROM ALL_OBJECTS
         WHERE OWNER = '%s' AND OBJECT_NAME = '%s' AND OBJECT_TYPE = 'TABLE') O
 ORDER BY E.GRP`

// Partitions lists the partitions of a table in partition order. Empty for a
// table that is not partitioned.
func Partitions(ctx context.Context, sess stmt.Session, t *common.Table, logger g.LoggerType) ([]string, error) {
	rows, err := Retrieve(ctx, sess, partitionQuery,
		[]string{quoteLiteral(t.Owner), quoteLiteral(t.Name)}, logger)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, r[0])
	}
	return parts, nil
}

// RowidRange is an inclusive ROWID interval.
type RowidRange struct {
	Lo string
	Hi string
}

// RowidRanges cuts a heap table into at most chunks ROWID ranges.
func RowidRanges(ctx context.Context, sess stmt.Session, t *common.Table, chunks int, logger g.LoggerType) ([]RowidRange, error) {
	if chunks < 1 {
		chunks = 1
	}
	owner, name := quoteLiteral(t.Owner), quoteLiteral(t.Name)
	rows, err := Retrieve(ctx, sess, rowidRangeQuery,
		[]string{strconv.Itoa(chunks), owner, name, owner, name}, logger)
	if err != nil {
		return nil, err
	}
	ranges := make([]RowidRange, 0, len(rows))
	for _, r := range rows {
		ranges = append(ranges, RowidRange{Lo: r[0], Hi: r[1]})
	}
	return ranges, nil
}

// SelectStatement builds the SELECT of a table. partition and scn are optional.
// With rng set, the statement carries two %s placeholders for the ROWID bounds.
func SelectStatement(t *common.Table, partition string, scn int64, rng *RowidRange) Statement {
	var sb bytes.Buffer
	fmt.Fprintf(&sb, "SELECT %s FROM %s", t.SelectList(), t.QuotedName())
	if partition != "" {
		fmt.Fprintf(&sb, ` PARTITION ("%s")`, partition)
	}
	if scn > 0 {
		fmt.Fprintf(&sb, " AS OF SCN %d", scn)
	}

	var holders []string
	var conds []string
	if rng != nil {
		conds = append(conds, "ROWID BETWEEN '%s' AND '%s'")
		holders = []string{rng.Lo, rng.Hi}
	}
	if t.Where != "" {
		conds = append(conds, "("+t.Where+")")
	}
	for i, c := range conds {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c)
	}
	return Statement{Text: sb.String(), Holders: holders}
}
