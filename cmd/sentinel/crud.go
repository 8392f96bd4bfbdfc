package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyberpath-HQ/sentinel/sentinel/store"
)

func decodeArg(doc string) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return nil, fmt.Errorf("document is not valid JSON: %w", err)
	}
	return data, nil
}

var insertCmd = &cobra.Command{
	Use:   "insert <collection> <id> <json>",
	Short: "Insert a new document",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := decodeArg(args[2])
		if err != nil {
			return err
		}
		return withCollection(args[0], func(col *store.Collection) error {
			return col.Insert(args[1], data)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Print a document's body",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollection(args[0], func(col *store.Collection) error {
			doc, err := col.Get(args[1])
			if err != nil {
				return err
			}
			if doc == nil {
				fmt.Println("null")
				return nil
			}
			raw, err := json.MarshalIndent(doc.Data, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <collection> <id> <json>",
	Short: "Replace a document's body in full",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := decodeArg(args[2])
		if err != nil {
			return err
		}
		return withCollection(args[0], func(col *store.Collection) error {
			return col.Update(args[1], data)
		})
	},
}

var upsertCmd = &cobra.Command{
	Use:   "upsert <collection> <id> <json>",
	Short: "Insert or replace a document",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := decodeArg(args[2])
		if err != nil {
			return err
		}
		return withCollection(args[0], func(col *store.Collection) error {
			inserted, err := col.Upsert(args[1], data)
			if err != nil {
				return err
			}
			if inserted {
				fmt.Println("inserted")
			} else {
				fmt.Println("updated")
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <collection> <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollection(args[0], func(col *store.Collection) error {
			return col.Delete(args[1])
		})
	},
}

var countCmd = &cobra.Command{
	Use:   "count <collection>",
	Short: "Print a collection's document count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollection(args[0], func(col *store.Collection) error {
			n, err := col.Count()
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(insertCmd, getCmd, updateCmd, upsertCmd, deleteCmd, countCmd)
}
