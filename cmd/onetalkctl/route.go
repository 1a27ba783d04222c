package main

import (
	"fmt"
	"io"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/spf13/cobra"
)

func newRouteCmd(opts *rootOptions) *cobra.Command {
	var (
		commType string
		content  string
	)

	cmd := &cobra.Command{
		Use:   "route <from> <to>",
		Short: "Classify and route an inbound communication",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				result, err := env.app.Dispatcher.ClassifyAndRoute(cmd.Context(), service.InboundEvent{
					From:    args[0],
					To:      args[1],
					Type:    domain.CommunicationType(commType),
					Content: content,
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

	cmd.Flags().StringVarP(&commType, "type", "t", string(domain.TypeCall), "communication type (call, sms, voicemail)")
	cmd.Flags().StringVar(&content, "content", "", "message text or call summary")

	return cmd
}

func newEndCallCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "end-call <communication-id> <duration-seconds>",
		Short: "Complete an active call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var duration int
			if _, err := fmt.Sscan(args[1], &duration); err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[1], err)
			}

			return run(cmd, opts, func(env *environment) error {
				comm, err := env.app.Dispatcher.EndCall(cmd.Context(), args[0], duration)
				if err != nil {
					return err
				}

				return env.out.print(comm, func(w io.Writer) {
					printCommunication(w, string(comm.Status), comm)
				})
			})
		},
	}
}

func printCommunication(w io.Writer, outcome string, comm *domain.Communication) {
	fmt.Fprintf(w, "Outcome:\t%s\n", outcome)
	if comm == nil {
		return
	}

	fmt.Fprintf(w, "Communication:\t%s\n", comm.ID)
	fmt.Fprintf(w, "Department:\t%s (%s)\n", comm.DepartmentID, comm.RoutingMethod)
	fmt.Fprintf(w, "User:\t%s\n", deref(comm.UserID))
	fmt.Fprintf(w, "Line:\t%s (%s)\n", deref(comm.RoutedNumber), comm.RoutingReason)
	fmt.Fprintf(w, "Status:\t%s\n", comm.Status)
	if comm.Duration != nil {
		fmt.Fprintf(w, "Duration:\t%ds\n", *comm.Duration)
	}
}
