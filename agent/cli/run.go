package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

func addRunFlags(cmd *cobra.Command, tenantID *string, opts *runOptions) {
	cmd.Flags().StringVar(tenantID, "tenant-id", "", "Tenant id (default: $RUNTIME_DEFAULT_TENANT_ID)")
	cmd.Flags().BoolVar(&opts.useLLM, "use-llm", false, "Use the configured LLM instead of the heuristic model")
	cmd.Flags().StringVar(&opts.storeKind, "store", storePostgres, "Backing store: postgres or memory")
}

func newRunCmd() *cobra.Command {
	var (
		agentID   string
		tenantID  string
		inputJSON string
		opts      runOptions
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an agent with a JSON payload (flag or stdin) and print the final state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(agentID) == "" {
				return usagef("--agent-id is required")
			}
			raw := inputJSON
			if strings.TrimSpace(raw) == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				raw = string(data)
			}
			payload, err := decodePayload(raw)
			if err != nil {
				return err
			}
			return runAgent(cmd, agentID, tenantID, payload, opts)
		},
	}

	cmd.Flags().StringVar(&agentID, "agent-id", "", "Agent id or alias (triage, resolution, imel, kall)")
	cmd.Flags().StringVar(&inputJSON, "input-json", "", "Trigger payload as a JSON object")
	addRunFlags(cmd, &tenantID, &opts)
	return cmd
}

func newRunTriageCmd() *cobra.Command {
	var (
		tenantID, sender, content, emailID string
		opts                               runOptions
	)

	cmd := &cobra.Command{
		Use:   "run-triage",
		Short: "Triage one email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"sender_email":  sender,
				"email_content": content,
			}
			if emailID != "" {
				payload["email_id"] = emailID
			}
			return runAgent(cmd, string(contractx.AgentTriage), tenantID, payload, opts)
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "Sender email address")
	cmd.Flags().StringVar(&content, "content", "", "Email body")
	cmd.Flags().StringVar(&emailID, "email-id", "", "Source email id (default: generated)")
	addRunFlags(cmd, &tenantID, &opts)
	return cmd
}

func newRunResolutionCmd() *cobra.Command {
	var (
		tenantID, ticketID, sender string
		opts                       runOptions
	)

	cmd := &cobra.Command{
		Use:   "run-resolution",
		Short: "Resolve one escalated ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"ticket_id": ticketID}
			if sender != "" {
				payload["sender_email"] = sender
			}
			return runAgent(cmd, string(contractx.AgentResolution), tenantID, payload, opts)
		},
	}

	cmd.Flags().StringVar(&ticketID, "ticket-id", "", "Ticket id")
	cmd.Flags().StringVar(&sender, "sender", "", "Requester email address for the update")
	addRunFlags(cmd, &tenantID, &opts)
	return cmd
}

func decodePayload(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: payload is empty", contractx.ErrInvalidPayload)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", contractx.ErrInvalidPayload, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is null", contractx.ErrInvalidPayload)
	}
	return payload, nil
}

func runAgent(cmd *cobra.Command, agentID, tenantID string, payload map[string]any, opts runOptions) error {
	ctx := cmd.Context()

	be, closeFn, err := openBackend(ctx, opts.storeKind)
	if err != nil {
		return err
	}
	defer closeFn()

	runner, err := buildRunner(ctx, be, opts)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, agentID, tenantID, payload)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
