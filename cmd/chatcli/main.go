// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command chatcli is the terminal client for the Aleutian chat service.
//
// # Usage
//
//	chatcli send "What is the capital of Alaska?"
//	chatcli send --chat <thread-id> "And its population?"
//	chatcli history
//	chatcli show <thread-id>
//	chatcli star <thread-id>
//	chatcli delete <thread-id>
//	chatcli clear
//
// The server address defaults to http://localhost:8080 and can be
// overridden with --server or the CHATD_SERVER environment variable.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianChat/pkg/ux"
)

var (
	serverURL string
	authToken string

	rootCmd = &cobra.Command{
		Use:   "chatcli",
		Short: "Talk to the Aleutian chat service from your terminal",
		Long: `chatcli sends messages to the Aleutian chat service and streams
the reply back token by token. Threads persist on the server; use
history, show, star, delete, and clear to manage them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	defaultServer := os.Getenv("CHATD_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer,
		"Chat service base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("ALEUTIAN_TOKEN"),
		"Bearer token for authenticated deployments")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(starCmd)
}

// newAPIClient builds the HTTP client from the global flags.
func newAPIClient() *ux.Client {
	opts := []ux.ClientOption{}
	if authToken != "" {
		opts = append(opts, ux.WithToken(authToken))
	}
	return ux.NewClient(serverURL, opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
}
