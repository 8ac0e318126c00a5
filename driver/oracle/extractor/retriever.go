package extractor

import (
	"context"
	"strings"

	"github.com/actiontech/xtru/driver/oracle/attr"
	"github.com/actiontech/xtru/driver/oracle/stmt"
	"github.com/actiontech/xtru/g"
)

const retrieveBulkSize = 100

// Retriever collects a small result set as text. NULL is "".
type Retriever struct {
	stmt.BaseFetchable
	attrs func() []attr.Attr
	Rows  [][]string
}

func (r *Retriever) PostBulkAction(n int) error {
	attrs := r.attrs()
	for i := 0; i < n; i++ {
		row := make([]string, len(attrs))
		for c, a := range attrs {
			if !a.IsNull(i) {
				row[c] = string(a.AppendText(nil, i))
			}
		}
		r.Rows = append(r.Rows, row)
	}
	return nil
}

// Retrieve runs a dictionary query. Holders fill the %s placeholders of text.
func Retrieve(ctx context.Context, sess stmt.Session, text string, holders []string, logger g.LoggerType) ([][]string, error) {
	st := stmt.New(sess, text, retrieveBulkSize, nil, logger)
	if len(holders) > 0 {
		if err := st.ConvPlaceHolder(holders...); err != nil {
			return nil, err
		}
	}
	if err := st.Query(ctx); err != nil {
		return nil, err
	}
	r := &Retriever{attrs: st.Attrs}
	if _, err := st.Fetch(ctx, r, nil); err != nil {
		return nil, err
	}
	return r.Rows, nil
}

// quoteLiteral escapes s for use inside a SQL string literal.
func quoteLiteral(s string) string {
	return strings.Replace(s, "'", "''", -1)
}
