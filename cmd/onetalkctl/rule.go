package main

import (
	"fmt"
	"io"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/spf13/cobra"
)

func newRuleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Routing rule management",
	}

	cmd.AddCommand(newRuleAddCmd(opts))
	cmd.AddCommand(newRuleListCmd(opts))
	cmd.AddCommand(newRuleToggleCmd(opts, "enable", "Activate a routing rule", true))
	cmd.AddCommand(newRuleToggleCmd(opts, "disable", "Deactivate a routing rule", false))

	return cmd
}

func newRuleAddCmd(opts *rootOptions) *cobra.Command {
	var (
		targetUser string
		priority   int
	)

	cmd := &cobra.Command{
		Use:   "add <phone_pattern|time_based|department> <value> <department>",
		Short: "Add a routing rule",
		Long:  "Adds a rule; lower priorities are evaluated first and the first match wins.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := service.AddRuleParams{
				ConditionType:    domain.ConditionType(args[0]),
				ConditionValue:   args[1],
				TargetDepartment: args[2],
				TargetUser:       targetUser,
			}
			if cmd.Flags().Changed("priority") {
				params.Priority = &priority
			}

			return run(cmd, opts, func(env *environment) error {
				rule, err := env.app.Rules.AddRule(cmd.Context(), params)
				if err != nil {
					return err
				}

				return env.out.print(rule, func(w io.Writer) {
					fmt.Fprintf(w, "Rule %s: %s %q -> %s (priority %d)\n",
						rule.ID, rule.ConditionType, rule.ConditionValue, rule.TargetDepartment, rule.Priority)
				})
			})
		},
	}

	cmd.Flags().StringVar(&targetUser, "user", "", "preferred user in the target department")
	cmd.Flags().IntVar(&priority, "priority", 10, "evaluation priority, lower first")

	return cmd
}

func newRuleListCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List routing rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				rules, err := env.app.Rules.ListRules(cmd.Context(), !all)
				if err != nil {
					return err
				}

				return env.out.print(rules, func(w io.Writer) {
					if len(rules) == 0 {
						fmt.Fprintln(w, "No rules.")
						return
					}

					fmt.Fprintln(w, "ID\tPRIORITY\tCONDITION\tVALUE\tDEPARTMENT\tUSER\tACTIVE")
					for _, r := range rules {
						fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%t\n",
							r.ID, r.Priority, r.ConditionType, r.ConditionValue, r.TargetDepartment, deref(r.TargetUser), r.IsActive)
					}
				})
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive rules")

	return cmd
}

func newRuleToggleCmd(opts *rootOptions, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				rule, err := env.app.Rules.SetActive(cmd.Context(), args[0], active)
				if err != nil {
					return err
				}

				return env.out.print(rule, func(w io.Writer) {
					fmt.Fprintf(w, "Rule %s active: %t\n", rule.ID, rule.IsActive)
				})
			})
		},
	}
}
