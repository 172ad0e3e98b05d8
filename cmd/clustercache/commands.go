package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var errNotFound = errors.New("not found")

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := driver.Get(ctxOf(cmd), args[0], errNotFound)
			if err != nil {
				return err
			}
			if val == errNotFound {
				return fmt.Errorf("key %q: %w", args[0], errNotFound)
			}
			return printValue(cmd, val)
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key; --json stores a structured value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var val any = args[1]
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if err := json.Unmarshal([]byte(args[1]), &val); err != nil {
					return fmt.Errorf("value is not valid JSON: %w", err)
				}
			}
			var expire []time.Duration
			if cmd.Flags().Changed("ttl") {
				ttl, _ := cmd.Flags().GetDuration("ttl")
				expire = append(expire, ttl)
			}
			tag, _ := cmd.Flags().GetString("tag")
			var ok bool
			var err error
			if tag != "" {
				ok, err = driver.Tag(tag).Set(ctxOf(cmd), args[0], val, expire...)
			} else {
				ok, err = driver.Set(ctxOf(cmd), args[0], val, expire...)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks whether a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := driver.Has(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := driver.Delete(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	incCmd = &cobra.Command{
		Use:   "inc [key] [step]",
		Short: "Increments an integer key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := stepArg(args)
			if err != nil {
				return err
			}
			n, err := driver.Inc(ctxOf(cmd), args[0], step)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	decCmd = &cobra.Command{
		Use:   "dec [key] [step]",
		Short: "Decrements an integer key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := stepArg(args)
			if err != nil {
				return err
			}
			n, err := driver.Dec(ctxOf(cmd), args[0], step)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Clears a tag, or with --all flushes the whole cluster database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tag, _ := cmd.Flags().GetString("tag")
			all, _ := cmd.Flags().GetBool("all")
			switch {
			case tag != "":
				ok, err := driver.ClearTag(ctxOf(cmd), tag)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
			case all:
				ok, err := driver.Clear(ctxOf(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
			default:
				return fmt.Errorf("clear needs --tag or --all")
			}
			return nil
		},
	}
	tagCmd = &cobra.Command{
		Use:   "tag",
		Short: "Tag record operations",
	}
	tagMembersCmd = &cobra.Command{
		Use:   "members [tag]",
		Short: "Lists the storage keys recorded under a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := driver.Tag(args[0]).Members(ctxOf(cmd))
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	tagAttachCmd = &cobra.Command{
		Use:   "attach [tag] [key...]",
		Short: "Records existing keys under a tag",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return driver.Tag(args[0]).Attach(ctxOf(cmd), args[1:]...)
		},
	}
)

func init() {
	setCmd.Flags().Bool("json", false, "parse value as JSON and store it enveloped")
	setCmd.Flags().Duration("ttl", 0, "expiry; 0 disables it, omitted uses --expire")
	setCmd.Flags().String("tag", "", "record the key under this tag when the write creates it")
	clearCmd.Flags().String("tag", "", "tag to clear")
	clearCmd.Flags().Bool("all", false, "flush the active database on every master")
	tagCmd.AddCommand(tagMembersCmd, tagAttachCmd)
}

func stepArg(args []string) (int64, error) {
	if len(args) < 2 {
		return 1, nil
	}
	step, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("step must be an integer: %w", err)
	}
	return step, nil
}

func printValue(cmd *cobra.Command, val any) error {
	if s, ok := val.(string); ok {
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}
	out, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
