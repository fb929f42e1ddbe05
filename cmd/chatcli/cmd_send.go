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
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianChat/pkg/ux"
)

var (
	sendChatID string

	sendCmd = &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message and stream the reply",
		Long: `Sends a message to the chat service and prints the reply as it
streams in. Without --chat a new thread is created; its id is printed
so the conversation can be continued.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSendCommand,
	}
)

func init() {
	sendCmd.Flags().StringVar(&sendChatID, "chat", "", "Existing thread id to continue")
}

func runSendCommand(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := ux.NewController(newAPIClient())
	printer := newStreamPrinter()
	unsubscribe := ctrl.Subscribe(printer.handle)
	defer unsubscribe()

	key := ctrl.Send(ctx, sendChatID, text, "")

	// Ctrl+C stops the in-flight send instead of killing the process
	// mid-line.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		ctrl.Stop(key)
	}()

	ctrl.Wait()
	if printer.failed {
		// The envelope is already on screen.
		os.Exit(1)
	}
	return nil
}

// streamPrinter turns controller updates into terminal output. Tokens
// print incrementally; the printed prefix never changes once written.
type streamPrinter struct {
	mu      sync.Mutex
	spinner *ux.Spinner
	printed int
	failed  bool
}

func newStreamPrinter() *streamPrinter {
	return &streamPrinter{}
}

func (p *streamPrinter) handle(update ux.SendUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch update.State {
	case ux.StateSending:
		p.spinner = ux.NewSpinner("Thinking")
		p.spinner.Start()

	case ux.StateStreaming:
		p.stopSpinnerLocked()
		if p.printed == 0 && len(update.Answer) > 0 {
			fmt.Println(ux.RoleLabel("assistant"))
		}
		if len(update.Answer) > p.printed {
			fmt.Print(update.Answer[p.printed:])
			p.printed = len(update.Answer)
		}

	case ux.StateDone:
		p.stopSpinnerLocked()
		// The non-streaming fallback delivers the whole answer at once.
		if p.printed == 0 && update.Answer != "" {
			fmt.Println(ux.RoleLabel("assistant"))
			fmt.Print(update.Answer)
			p.printed = len(update.Answer)
		}
		fmt.Println()
		if update.ChatID != "" {
			ux.Muted(fmt.Sprintf("thread %s", update.ChatID))
		}
		if update.Remaining >= 0 {
			ux.Muted(fmt.Sprintf("%d messages left today", update.Remaining))
		}

	case ux.StateFailed:
		p.stopSpinnerLocked()
		p.failed = true
		if p.printed > 0 {
			fmt.Println()
		}
		if update.Err != nil {
			fmt.Println(ux.RenderErrorDetail(*update.Err))
		} else {
			ux.Error("the send failed for an unknown reason")
		}
	}
}

func (p *streamPrinter) stopSpinnerLocked() {
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}

