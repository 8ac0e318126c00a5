package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/actiontech/xtru/driver/common"
	oracle "github.com/actiontech/xtru/driver/oracle/config"
	"github.com/actiontech/xtru/metric"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	"github.com/hashicorp/hcl/hcl/ast"
	"github.com/mitchellh/mapstructure"
)

// ParseConfigFile parses the given path as a job file.
func ParseConfigFile(path string) (*Config, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config, err := ParseConfig(f)
	if err != nil {
		return nil, err
	}
	config.File = path
	return config, nil
}

// ParseConfig parses the job from the given io.Reader.
//
// Due to current internal limitations, the entire contents of the
// io.Reader will be copied into memory first before parsing.
func ParseConfig(r io.Reader) (*Config, error) {
	// Copy the reader into an in-memory buffer first since HCL requires it.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}

	// Parse the buffer
	root, err := hcl.Parse(buf.String())
	if err != nil {
		return nil, fmt.Errorf("error parsing: %s", err)
	}
	buf.Reset()

	// Top-level item should be a list
	list, ok := root.Node.(*ast.ObjectList)
	if !ok {
		return nil, fmt.Errorf("error parsing: root should be an object")
	}

	config := DefaultConfig()
	if err := parseConfig(config, list); err != nil {
		return nil, fmt.Errorf("error parsing 'config': %v", err)
	}

	return config, nil
}

func parseConfig(result *Config, list *ast.ObjectList) error {
	// Check for invalid keys
	valid := []string{
		"log_level",
		"log_file",
		"metastore",
		"parallel",
		"bulk_size",
		"feedback",
		"lob_piece_size",
		"lob_width",
		"date_format",
		"timestamp_format",
		"timestamp_tz_format",
		"float_format",
		"consistent",
		"loader_script",
		"oracle",
		"target",
		"delimiter",
		"output",
		"metric",
		"table",
	}
	if err := checkHCLKeys(list, valid); err != nil {
		return multierror.Prefix(err, "config:")
	}

	// Decode the full thing into a map[string]interface for ease
	var m map[string]interface{}
	if err := hcl.DecodeObject(&m, list); err != nil {
		return err
	}
	delete(m, "oracle")
	delete(m, "target")
	delete(m, "delimiter")
	delete(m, "output")
	delete(m, "metric")
	delete(m, "table")

	// Decode the rest
	if err := mapstructure.WeakDecode(m, result); err != nil {
		return err
	}

	if o := list.Filter("oracle"); len(o.Items) > 0 {
		result.Oracle = &oracle.OracleConfig{}
		if err := parseBlock("oracle", o, result.Oracle,
			[]string{"user", "password", "host", "port", "service_name", "connect", "scn"}); err != nil {
			return err
		}
	}
	if o := list.Filter("target"); len(o.Items) > 0 {
		result.Target = &common.TargetConfig{}
		if err := parseBlock("target", o, result.Target,
			[]string{"driver", "dsn", "table", "multi_row"}); err != nil {
			return err
		}
	}
	if o := list.Filter("delimiter"); len(o.Items) > 0 {
		if err := parseBlock("delimiter", o, &result.Delimiter,
			[]string{"separator", "enclosure", "terminator", "length_prefix", "no_enclosure"}); err != nil {
			return err
		}
	}
	if o := list.Filter("output"); len(o.Items) > 0 {
		if err := parseBlock("output", o, &result.Output,
			[]string{"dir", "data", "control", "extension", "ddl"}); err != nil {
			return err
		}
	}
	if o := list.Filter("metric"); len(o.Items) > 0 {
		result.Metric = &metric.Config{}
		if err := parseBlock("metric", o, result.Metric,
			[]string{"statsite_address", "statsd_address", "prometheus_push_address", "disable_hostname"}); err != nil {
			return err
		}
	}
	if o := list.Filter("table"); len(o.Items) > 0 {
		tables, err := parseTables(o)
		if err != nil {
			return multierror.Prefix(err, "table ->")
		}
		result.Tables = tables
	}
	return nil
}

// parseBlock decodes a single unlabelled block into result.
func parseBlock(name string, list *ast.ObjectList, result interface{}, valid []string) error {
	if len(list.Items) > 1 {
		return fmt.Errorf("only one '%s' block allowed", name)
	}
	item := list.Items[0]
	if len(item.Keys) > 0 {
		return fmt.Errorf("'%s' block takes no label", name)
	}
	if _, ok := item.Val.(*ast.ObjectType); !ok {
		return fmt.Errorf("'%s' value: should be an object", name)
	}
	if err := checkHCLKeys(item.Val, valid); err != nil {
		return multierror.Prefix(err, name+" ->")
	}

	var m map[string]interface{}
	if err := hcl.DecodeObject(&m, item.Val); err != nil {
		return err
	}
	if err := mapstructure.WeakDecode(m, result); err != nil {
		return multierror.Prefix(err, name+" ->")
	}
	return nil
}

func parseTables(list *ast.ObjectList) ([]*common.Table, error) {
	valid := []string{
		"query",
		"where",
		"columns",
		"split",
		"chunks",
		"define",
		"data",
		"control",
	}

	tables := make([]*common.Table, 0, len(list.Items))
	seen := make(map[string]struct{})
	for _, item := range list.Items {
		if len(item.Keys) != 1 {
			return nil, fmt.Errorf("table block needs exactly one OWNER.NAME label")
		}
		n := item.Keys[0].Token.Value().(string)

		// Make sure we haven't already found this
		if _, ok := seen[n]; ok {
			return nil, fmt.Errorf("table '%s' defined more than once", n)
		}
		seen[n] = struct{}{}

		if _, ok := item.Val.(*ast.ObjectType); !ok {
			return nil, fmt.Errorf("table '%s': should be an object", n)
		}
		if err := checkHCLKeys(item.Val, valid); err != nil {
			return nil, multierror.Prefix(err, fmt.Sprintf("'%s' ->", n))
		}

		var m map[string]interface{}
		if err := hcl.DecodeObject(&m, item.Val); err != nil {
			return nil, err
		}
		t := &common.Table{}
		if err := mapstructure.WeakDecode(m, t); err != nil {
			return nil, multierror.Prefix(err, fmt.Sprintf("'%s' ->", n))
		}
		owner, name, err := common.ParseTableName(n)
		if err != nil {
			return nil, err
		}
		t.Owner, t.Name = owner, name
		tables = append(tables, t)
	}
	return tables, nil
}

func checkHCLKeys(node ast.Node, valid []string) error {
	var list *ast.ObjectList
	switch n := node.(type) {
	case *ast.ObjectList:
		list = n
	case *ast.ObjectType:
		list = n.List
	default:
		return fmt.Errorf("cannot check HCL keys of type %T", n)
	}

	validMap := make(map[string]struct{}, len(valid))
	for _, v := range valid {
		validMap[v] = struct{}{}
	}

	var result error
	for _, item := range list.Items {
		key := item.Keys[0].Token.Value().(string)
		if _, ok := validMap[key]; !ok {
			result = multierror.Append(result, fmt.Errorf(
				"invalid key: %s", key))
		}
	}

	return result
}
