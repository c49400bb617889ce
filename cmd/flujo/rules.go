package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flujo/flujo/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect merchant rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesTestCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active merchant rules in evaluation order",
		RunE:  runRulesList,
	}
	cmd.Flags().String("owner", "", "owner whose rules to list")
	return cmd
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <merchant>",
		Short: "Show which rule a merchant string would match",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesTest,
	}
	cmd.Flags().String("owner", "", "owner whose rules to evaluate")
	return cmd
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	ownerFlag, _ := cmd.Flags().GetString("owner")
	owner, err := requireOwner(ownerFlag)
	if err != nil {
		return err
	}

	store, err := createStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ruleList, err := store.GetActiveMerchantRules(cmd.Context(), owner)
	if err != nil {
		return err
	}

	if len(ruleList) == 0 {
		fmt.Println("No active merchant rules.")
		return nil
	}

	fmt.Printf("%-6s %-10s %-8s %-40s %s\n", "ID", "PRIORITY", "TYPE", "PATTERN", "CATEGORY")
	for _, rule := range ruleList {
		kind := "contains"
		if rule.IsRegex {
			kind = "regex"
		}
		category := "-"
		if rule.CategoryID != nil {
			category = fmt.Sprintf("%d", *rule.CategoryID)
			if rule.SubcategoryID != nil {
				category = fmt.Sprintf("%d/%d", *rule.CategoryID, *rule.SubcategoryID)
			}
		}
		fmt.Printf("%-6d %-10d %-8s %-40s %s\n", rule.ID, rule.Priority, kind, rule.Pattern, category)
	}

	return nil
}

func runRulesTest(cmd *cobra.Command, args []string) error {
	ownerFlag, _ := cmd.Flags().GetString("owner")
	owner, err := requireOwner(ownerFlag)
	if err != nil {
		return err
	}
	merchant := args[0]

	store, err := createStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ruleList, err := store.GetActiveMerchantRules(cmd.Context(), owner)
	if err != nil {
		return err
	}

	matched := rules.NewMatcher(ruleList).Match(merchant)
	if matched == nil {
		fmt.Printf("%q matches no rule; it would stay uncategorized.\n", merchant)
		return nil
	}

	fmt.Printf("%q matches rule %d (priority %d, pattern %q)\n",
		merchant, matched.ID, matched.Priority, matched.Pattern)
	return nil
}
