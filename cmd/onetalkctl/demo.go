package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/spf13/cobra"
)

type demoDepartment struct {
	id    string
	name  string
	lines []string
}

var demoDepartments = []demoDepartment{
	{"sales", "Sales Department", []string{"+1-555-SALES-01", "+1-555-SALES-02", "+1-555-SALES-03"}},
	{"credit_analysis", "Credit Analysis", []string{"+1-555-CREDIT-01", "+1-555-CREDIT-02"}},
	{"vehicle_transport", "Vehicle Transport", []string{"+1-555-TRANSPORT-01"}},
	{"customer_service", "Customer Service", []string{"+1-555-SUPPORT-01", "+1-555-SUPPORT-02"}},
	{"admin", "Administration", []string{"+1-555-ADMIN-01"}},
}

var demoUsers = []service.AddUserParams{
	{ID: "user_001", Name: "Alice Johnson", DepartmentID: "sales", Role: domain.RoleLead},
	{ID: "user_002", Name: "Bob Smith", DepartmentID: "sales", Role: domain.RoleMember},
	{ID: "user_003", Name: "Carol Davis", DepartmentID: "credit_analysis", Role: domain.RoleLead},
	{ID: "user_004", Name: "David Wilson", DepartmentID: "vehicle_transport", Role: domain.RoleLead},
	{ID: "user_005", Name: "Eve Brown", DepartmentID: "customer_service", Role: domain.RoleLead},
}

var demoRules = []struct {
	pattern    string
	department string
}{
	{"555-CREDIT", "credit_analysis"},
	{"555-TRANSPORT", "vehicle_transport"},
}

func newDemoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Seed sample departments, users, lines and rules, then route a call",
		Long:  "Seeds a sample organisation (safe to re-run) and routes one inbound call through it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				out := cmd.OutOrStdout()

				if err := seedDemo(cmd.Context(), env, out); err != nil {
					return err
				}

				result, err := env.app.Dispatcher.ClassifyAndRoute(cmd.Context(), service.InboundEvent{
					From:    "+1234567890",
					To:      "+1-555-CREDIT-01",
					Type:    domain.TypeCall,
					Content: "Hi, I need help with my credit application",
				})
				if err != nil {
					return err
				}

				return env.out.print(result, func(w io.Writer) {
					printCommunication(w, string(result.Outcome), result.Communication)
				})
			})
		},
	}
}

func seedDemo(ctx context.Context, env *environment, out io.Writer) error {
	var lines, rules int

	for _, d := range demoDepartments {
		if _, err := env.app.Directory.CreateDepartment(ctx, d.id, d.name, ""); err != nil {
			return err
		}

		for i, number := range d.lines {
			priority := 5
			if i == 0 {
				priority = 10
			}

			_, err := env.app.Phones.Register(ctx, service.RegisterPhoneParams{
				Number:       number,
				DepartmentID: d.id,
				Priority:     &priority,
			})
			switch {
			case errors.Is(err, apperrors.ErrDuplicateNumber):
			case err != nil:
				return err
			default:
				lines++
			}
		}
	}

	for _, u := range demoUsers {
		if _, err := env.app.Directory.AddUser(ctx, u); err != nil {
			return err
		}
	}

	existing, err := env.app.Rules.ListRules(ctx, false)
	if err != nil {
		return err
	}

	priority := 1
	for _, r := range demoRules {
		if hasPatternRule(existing, r.pattern, r.department) {
			continue
		}

		if _, err := env.app.Rules.AddRule(ctx, service.AddRuleParams{
			ConditionType:    domain.ConditionPhonePattern,
			ConditionValue:   r.pattern,
			TargetDepartment: r.department,
			Priority:         &priority,
		}); err != nil {
			return err
		}
		rules++
	}

	if env.out.format == outputText {
		fmt.Fprintf(out, "Seeded %d departments, %d users, %d new lines, %d new rules\n\n",
			len(demoDepartments), len(demoUsers), lines, rules)
	}

	return nil
}

func hasPatternRule(rules []domain.RoutingRule, pattern, department string) bool {
	for _, r := range rules {
		if r.ConditionType == domain.ConditionPhonePattern && r.ConditionValue == pattern && r.TargetDepartment == department {
			return true
		}
	}

	return false
}
