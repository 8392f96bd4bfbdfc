package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyberpath-HQ/sentinel/sentinel/query"
	"github.com/cyberpath-HQ/sentinel/sentinel/store"
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

var (
	whereExprs []string
	inExprs    []string
	existsKeys []string
	absentKeys []string
	sortField  string
	sortDesc   bool
	limitN     int
	offsetN    int
	projection []string
)

var queryCmd = &cobra.Command{
	Use:   "query <collection>",
	Short: "Query a collection and print matching documents",
	Long: `Query evaluates the given filters (conjoined) against a collection
and prints the matching document bodies as a JSON array.

Filter expressions take the form field OP value, where OP is one of
=  !=  >  >=  <  <=  ~ (contains)  ^ (starts with)  $ (ends with).
Values are parsed as JSON when possible, so age>25 compares numbers
while name=alice compares strings.

Examples:
  sentinel query users --where 'age>25' --where 'city=boston'
  sentinel query users --in 'city=boston,chicago' --sort age --desc
  sentinel query users --exists email --limit 10 --offset 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery()
		if err != nil {
			return err
		}
		return withCollection(args[0], func(col *store.Collection) error {
			docs, err := col.Query(q)
			if err != nil {
				return err
			}
			bodies := make([]interface{}, len(docs))
			for i, d := range docs {
				bodies[i] = d.Data
			}
			raw, err := json.MarshalIndent(bodies, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		})
	},
}

func buildQuery() (query.Query, error) {
	b := query.NewBuilder()
	for _, expr := range whereExprs {
		if err := applyWhere(b, expr); err != nil {
			return query.Query{}, err
		}
	}
	for _, expr := range inExprs {
		field, list, ok := strings.Cut(expr, "=")
		if !ok {
			return query.Query{}, fmt.Errorf("--in expects field=v1,v2,..., got %q", expr)
		}
		parts := strings.Split(list, ",")
		values := make([]interface{}, len(parts))
		for i, p := range parts {
			values[i] = parseValue(p)
		}
		b.In(field, values)
	}
	for _, field := range existsKeys {
		b.Exists(field, true)
	}
	for _, field := range absentKeys {
		b.Exists(field, false)
	}
	if sortField != "" {
		dir := query.Ascending
		if sortDesc {
			dir = query.Descending
		}
		b.Sort(sortField, dir)
	}
	if limitN > 0 {
		b.Limit(limitN)
	}
	if offsetN > 0 {
		b.Offset(offsetN)
	}
	if len(projection) > 0 {
		b.Project(projection...)
	}
	return b.Build()
}

// whereOps is scanned in order; two-character operators come first so that
// ">=" is not read as ">" followed by "=5".
var whereOps = []string{"!=", ">=", "<=", "=", ">", "<", "~", "^", "$"}

func applyWhere(b *query.Builder, expr string) error {
	for _, op := range whereOps {
		idx := strings.Index(expr, op)
		if idx <= 0 {
			continue
		}
		field := strings.TrimSpace(expr[:idx])
		value := parseValue(expr[idx+len(op):])
		switch op {
		case "=":
			b.Equals(field, value)
		case "!=":
			b.NotEquals(field, value)
		case ">":
			b.GreaterThan(field, value)
		case ">=":
			b.GreaterOrEqual(field, value)
		case "<":
			b.LessThan(field, value)
		case "<=":
			b.LessOrEqual(field, value)
		case "~":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("contains wants a string operand in %q", expr)
			}
			b.Contains(field, s)
		case "^":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("starts-with wants a string operand in %q", expr)
			}
			b.StartsWith(field, s)
		case "$":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("ends-with wants a string operand in %q", expr)
			}
			b.EndsWith(field, s)
		}
		return nil
	}
	return fmt.Errorf("no operator found in filter %q", expr)
}

// parseValue reads the operand as JSON when possible and falls back to the
// raw string, so numbers and booleans keep their type.
func parseValue(s string) interface{} {
	s = strings.TrimSpace(s)
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			meta := s.Stats()
			raw, err := json.MarshalIndent(meta, "", "  ")
			if err != nil {
				return types.NewError(types.CodeJSON, "encoding stats", err)
			}
			fmt.Println(string(raw))
			return nil
		})
	},
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			names, err := s.ListCollections()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		})
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop <collection>",
	Short: "Delete a collection and all its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			return s.DeleteCollection(args[0])
		})
	},
}

func init() {
	queryCmd.Flags().StringArrayVarP(&whereExprs, "where", "w", nil, "Filter expression (repeatable)")
	queryCmd.Flags().StringArrayVar(&inExprs, "in", nil, "Membership filter field=v1,v2,... (repeatable)")
	queryCmd.Flags().StringArrayVar(&existsKeys, "exists", nil, "Require the field to be present (repeatable)")
	queryCmd.Flags().StringArrayVar(&absentKeys, "not-exists", nil, "Require the field to be absent (repeatable)")
	queryCmd.Flags().StringVar(&sortField, "sort", "", "Sort by this field")
	queryCmd.Flags().BoolVar(&sortDesc, "desc", false, "Sort descending")
	queryCmd.Flags().IntVar(&limitN, "limit", 0, "Cap the number of results")
	queryCmd.Flags().IntVar(&offsetN, "offset", 0, "Skip the first N results")
	queryCmd.Flags().StringSliceVar(&projection, "project", nil, "Keep only these fields in results")
	rootCmd.AddCommand(queryCmd, statsCmd, collectionsCmd, dropCmd)
}
