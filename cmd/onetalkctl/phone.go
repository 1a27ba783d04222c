package main

import (
	"fmt"
	"io"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/spf13/cobra"
)

func newPhoneCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phone",
		Short: "Phone line management",
	}

	cmd.AddCommand(newPhoneRegisterCmd(opts))
	cmd.AddCommand(newPhoneAssignCmd(opts))
	cmd.AddCommand(newPhoneSetStatusCmd(opts))
	cmd.AddCommand(newPhoneStatusCmd(opts))
	cmd.AddCommand(newPhoneAvailableCmd(opts))

	return cmd
}

func newPhoneRegisterCmd(opts *rootOptions) *cobra.Command {
	var params service.RegisterPhoneParams
	var lineType string
	var priority int

	cmd := &cobra.Command{
		Use:   "register <number>",
		Short: "Register a phone line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Number = args[0]
			params.Type = domain.LineType(lineType)
			if cmd.Flags().Changed("priority") {
				params.Priority = &priority
			}

			return run(cmd, opts, func(env *environment) error {
				phone, err := env.app.Phones.Register(cmd.Context(), params)
				if err != nil {
					return err
				}

				return env.out.print(phone, func(w io.Writer) {
					fmt.Fprintf(w, "Registered %s (department %s, priority %d, capacity %d)\n",
						phone.Number, deref(phone.DepartmentID), phone.Priority, phone.MaxConcurrentCalls)
				})
			})
		},
	}

	cmd.Flags().StringVar(&params.DepartmentID, "department", "", "owning department")
	cmd.Flags().StringVar(&params.UserID, "user", "", "owning user")
	cmd.Flags().StringVar(&lineType, "type", "", "line type (business, emergency, personal)")
	cmd.Flags().IntVar(&priority, "priority", 5, "line priority, higher is preferred")
	cmd.Flags().IntVar(&params.MaxConcurrentCalls, "capacity", 0, "max concurrent calls (default 1)")

	return cmd
}

func newPhoneAssignCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <number> <department>",
		Short: "Move a line to a department",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				phone, err := env.app.Phones.AssignToDepartment(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}

				return env.out.print(phone, func(w io.Writer) {
					fmt.Fprintf(w, "%s now belongs to %s\n", phone.Number, deref(phone.DepartmentID))
				})
			})
		},
	}
}

func newPhoneSetStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <number> <available|busy|maintenance>",
		Short: "Change the status of a line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				phone, err := env.app.Phones.SetStatus(cmd.Context(), args[0], domain.LineStatus(args[1]))
				if err != nil {
					return err
				}

				return env.out.print(phone, func(w io.Writer) {
					fmt.Fprintf(w, "%s is %s\n", phone.Number, phone.Status)
				})
			})
		},
	}
}

func newPhoneStatusCmd(opts *rootOptions) *cobra.Command {
	var department string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List lines with their load",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				phones, err := env.app.Phones.Status(cmd.Context(), department)
				if err != nil {
					return err
				}

				return env.out.print(phones, func(w io.Writer) {
					if len(phones) == 0 {
						fmt.Fprintln(w, "No lines registered.")
						return
					}

					fmt.Fprintln(w, "NUMBER\tDEPARTMENT\tSTATUS\tPRIORITY\tCALLS\tUTILIZATION")
					for _, p := range phones {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%.1f%%\n",
							p.Number, deref(p.DepartmentID), p.Status, p.Priority,
							p.CurrentCalls, p.MaxConcurrentCalls, p.Utilization())
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&department, "department", "", "only lines of this department")

	return cmd
}

func newPhoneAvailableCmd(opts *rootOptions) *cobra.Command {
	var (
		department  string
		minPriority int
	)

	cmd := &cobra.Command{
		Use:   "available",
		Short: "Show the line a new call would take",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				phone, err := env.app.Phones.GetAvailable(cmd.Context(), department, minPriority)
				if err != nil {
					return err
				}

				return env.out.print(phone, func(w io.Writer) {
					fmt.Fprintf(w, "%s (department %s, %d/%d calls)\n",
						phone.Number, deref(phone.DepartmentID), phone.CurrentCalls, phone.MaxConcurrentCalls)
				})
			})
		},
	}

	cmd.Flags().StringVar(&department, "department", "", "department to find a line for")
	cmd.Flags().IntVar(&minPriority, "min-priority", 1, "lowest acceptable line priority")

	return cmd
}
