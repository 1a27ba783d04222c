package main

import (
	"fmt"
	"io"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/spf13/cobra"
)

func newDepartmentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "department",
		Short: "Department management",
	}

	cmd.AddCommand(newDepartmentAddCmd(opts))
	cmd.AddCommand(newDepartmentStatusCmd(opts))

	return cmd
}

func newDepartmentAddCmd(opts *rootOptions) *cobra.Command {
	var name, lead string

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Create or rename a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				dept, err := env.app.Directory.CreateDepartment(cmd.Context(), args[0], name, lead)
				if err != nil {
					return err
				}

				return env.out.print(dept, func(w io.Writer) {
					fmt.Fprintf(w, "Department %s (%s) saved\n", dept.ID, dept.Name)
				})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (derived from the id when empty)")
	cmd.Flags().StringVar(&lead, "lead", "", "lead user id")

	return cmd
}

func newDepartmentStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [id]",
		Short: "Show members and lines per department",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}

			return run(cmd, opts, func(env *environment) error {
				depts, err := env.app.Directory.DepartmentStatus(cmd.Context(), id)
				if err != nil {
					return err
				}

				return env.out.print(depts, func(w io.Writer) {
					for _, d := range depts {
						fmt.Fprintf(w, "%s\t(%d lines)\n", d.Name, len(d.PhoneNumbers))
						for _, m := range d.Members {
							fmt.Fprintf(w, "  %s\t%s\t%s\n", m.Name, m.Role, m.Status)
						}
					}
				})
			})
		},
	}
}

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
	}

	cmd.AddCommand(newUserAddCmd(opts))
	cmd.AddCommand(newUserSetStatusCmd(opts))
	cmd.AddCommand(newUserAvailableCmd(opts))

	return cmd
}

func newUserAddCmd(opts *rootOptions) *cobra.Command {
	var (
		params service.AddUserParams
		role   string
	)

	cmd := &cobra.Command{
		Use:   "add <id> <name> <department>",
		Short: "Add or update a user",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.ID, params.Name, params.DepartmentID = args[0], args[1], args[2]
			params.Role = domain.UserRole(role)

			return run(cmd, opts, func(env *environment) error {
				user, err := env.app.Directory.AddUser(cmd.Context(), params)
				if err != nil {
					return err
				}

				return env.out.print(user, func(w io.Writer) {
					fmt.Fprintf(w, "User %s (%s) is a %s of %s\n", user.ID, user.Name, user.Role, user.DepartmentID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&params.PhoneNumber, "phone", "", "direct phone number")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleMember), "role (lead, member)")

	return cmd
}

func newUserSetStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <available|busy|offline>",
		Short: "Change the status of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				user, err := env.app.Directory.SetStatus(cmd.Context(), args[0], domain.UserStatus(args[1]))
				if err != nil {
					return err
				}

				return env.out.print(user, func(w io.Writer) {
					fmt.Fprintf(w, "%s is %s\n", user.ID, user.Status)
				})
			})
		},
	}
}

func newUserAvailableCmd(opts *rootOptions) *cobra.Command {
	var preferred string

	cmd := &cobra.Command{
		Use:   "available <department>",
		Short: "Show who would take the next communication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				user, err := env.app.Directory.FindAvailable(cmd.Context(), args[0], preferred)
				if err != nil {
					return err
				}

				return env.out.print(user, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%s, %s)\n", user.ID, user.Name, user.Role)
				})
			})
		},
	}

	cmd.Flags().StringVar(&preferred, "prefer", "", "preferred user id")

	return cmd
}
