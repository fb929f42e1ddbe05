// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianChat/pkg/ux"
)

const requestTimeout = 30 * time.Second

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your chat threads, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		threads, err := newAPIClient().History(ctx)
		if err != nil {
			return err
		}
		if len(threads) == 0 {
			ux.Muted("no threads yet")
			return nil
		}

		for _, t := range threads {
			fmt.Printf("%s %s  %s\n", ux.StarMark(t.IsStarred), t.ID, t.Title)
			ux.Muted(fmt.Sprintf("    %d messages, updated %s",
				t.MessageCount, t.UpdatedAt.Local().Format("2006-01-02 15:04")))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [thread-id]",
	Short: "Print a full conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		thread, err := newAPIClient().GetThread(ctx, args[0])
		if err != nil {
			return err
		}

		title := thread.Title
		if thread.IsStarred {
			title = ux.StarMark(true) + " " + title
		}
		ux.Title(title)
		for _, msg := range thread.Messages {
			fmt.Println(ux.RoleLabel(msg.Role))
			fmt.Println(msg.Content)
			fmt.Println()
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [thread-id]",
	Short: "Delete one thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := newAPIClient().DeleteThread(ctx, args[0]); err != nil {
			return err
		}
		ux.Muted("deleted")
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all of your threads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm("Delete ALL threads? This cannot be undone [y/N]: ") {
			ux.Muted("aborted")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		count, err := newAPIClient().ClearThreads(ctx)
		if err != nil {
			return err
		}
		ux.Muted(fmt.Sprintf("deleted %d threads", count))
		return nil
	},
}

var starCmd = &cobra.Command{
	Use:   "star [thread-id]",
	Short: "Toggle a thread's star",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		starred, err := newAPIClient().ToggleStar(ctx, args[0])
		if err != nil {
			return err
		}
		if starred {
			fmt.Printf("%s starred\n", ux.StarMark(true))
		} else {
			ux.Muted("unstarred")
		}
		return nil
	},
}

// confirm prompts on stdin and accepts y or yes.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
