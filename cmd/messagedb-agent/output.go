package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/projection"
)

// defaultFormat picks pretty text on a terminal and JSON when piped.
func defaultFormat() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "text"
	}
	return "json"
}

// printAgentReply shows the assistant's latest text, the thing a chat user
// actually asked for.
func printAgentReply(ctx context.Context, a *app, threadID string) {
	events, err := a.sessions.Events(ctx, threadID)
	if err != nil {
		return
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == event.KindLLMResponseReceived {
			if text := event.DecodeResponseText(events[i]); text != "" {
				fmt.Printf("\n%s\n\n", text)
			}
			return
		}
		if events[i].Kind == event.KindLLMCallFailed {
			fmt.Printf("\nLLM call failed: %s\n\n", event.DecodeErrorMessage(events[i]))
			return
		}
	}
}

func printStateSummary(state projection.SessionState) {
	fmt.Printf("status=%s messages=%d llm_calls=%d tool_calls=%d errors=%d\n",
		state.Status, state.MessageCount, state.LLMCallCount, state.ToolCallCount, state.ErrorCount)
}

func renderEvents(events []event.Event, format string, full bool) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	for _, ev := range events {
		fmt.Printf("[%3d] %-28s %s\n", ev.Position, ev.Kind, ev.Time.Format(time.RFC3339))
		if summary := eventSummary(ev); summary != "" {
			fmt.Printf("      %s\n", summary)
		}
		if full {
			if data, err := json.Marshal(ev.Data); err == nil {
				fmt.Printf("      data: %s\n", data)
			}
			if ev.Metadata != nil {
				if meta, err := json.Marshal(ev.Metadata); err == nil {
					fmt.Printf("      metadata: %s\n", meta)
				}
			}
		}
	}
	return nil
}

func eventSummary(ev event.Event) string {
	switch ev.Kind {
	case event.KindUserMessageAdded:
		return truncate(event.DecodeUserMessage(ev), 100)
	case event.KindLLMResponseReceived:
		calls := event.DecodeToolCalls(ev)
		if len(calls) > 0 {
			names := make([]string, 0, len(calls))
			for _, tc := range calls {
				names = append(names, tc.Name)
			}
			return fmt.Sprintf("tool calls: %v", names)
		}
		return truncate(event.DecodeResponseText(ev), 100)
	case event.KindToolExecutionRequested, event.KindToolExecutionCompleted:
		return event.DecodeToolName(ev)
	case event.KindToolExecutionFailed, event.KindLLMCallFailed:
		return truncate(event.DecodeErrorMessage(ev), 100)
	case event.KindSessionCompleted:
		return event.DecodeCompletionReason(ev)
	default:
		return ""
	}
}

func renderSessions(states []projection.SessionState, format string) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}

	if len(states) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	fmt.Printf("%-36s  %-10s  %-8s  %-9s  %s\n", "THREAD", "STATUS", "MESSAGES", "LLM CALLS", "LAST ACTIVITY")
	for _, s := range states {
		last := ""
		if s.LastActivity != nil {
			last = s.LastActivity.Format(time.RFC3339)
		}
		fmt.Printf("%-36s  %-10s  %-8d  %-9d  %s\n", s.ThreadID, s.Status, s.MessageCount, s.LLMCallCount, last)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
