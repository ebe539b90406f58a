// Package output renders command results as tables, plain lines or JSON.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
)

func DefaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "table"
	}
	return "json"
}

// Payload converts any JSON-encodable value into the generic map Print
// renders.
func Payload(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return out, nil
}

func Print(w io.Writer, payload map[string]any, format string, quiet bool) error {
	if quiet {
		format = "quiet"
	}
	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		format = DefaultFormat()
	}

	switch format {
	case "json":
		return printJSON(w, payload)
	case "table":
		return printTable(w, payload)
	case "plain":
		return printPlain(w, payload)
	case "quiet":
		return printQuiet(w, payload)
	default:
		return errors.New("invalid --format value")
	}
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printTable(w io.Writer, payload map[string]any) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	switch {
	case hasKey(payload, "results"):
		fmt.Fprintf(tw, "considered=%s\teligible=%s\tacted=%s\tno_action=%s\tfailed=%s\n",
			str(payload["considered"]), str(payload["eligible"]), str(payload["acted"]),
			str(payload["no_action"]), str(payload["failed"]))
		fmt.Fprintln(tw, "AGENT\tVERDICT\tOUTCOME\tACTION\tDETAIL")
		for _, row := range toObjectSlice(payload["results"]) {
			detail := str(row["detail"])
			if e := str(row["error"]); e != "" {
				detail = "error: " + e
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				str(row["agent"]), str(row["verdict"]), str(row["outcome"]), str(row["action"]), detail)
		}
	case hasKey(payload, "summary") && hasKey(payload, "agents"):
		summary, _ := payload["summary"].(map[string]any)
		fmt.Fprintf(tw, "posts=%s\tlikes=%s\tfollows=%s\tactions=%s\n",
			str(summary["total_posts"]), str(summary["total_likes"]),
			str(summary["total_follows"]), str(summary["total_actions"]))
		fmt.Fprintln(tw, "NAME\tLEVEL\tAUTONOMY\tPOSTS\tLIKES\tFOLLOWS\tTOTAL")
		for _, row := range toObjectSlice(payload["agents"]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				str(row["name"]), str(row["activity_level"]), onOff(row["autonomy_enabled"]),
				str(row["recent_posts"]), str(row["recent_likes"]), str(row["recent_follows"]), str(row["recent_total"]))
		}
	case hasKey(payload, "agents"):
		fmt.Fprintln(tw, "NAME\tLEVEL\tAUTONOMY\tLAST_ACTIVITY\tPOSTS\tFOLLOWERS\tINTERESTS")
		for _, row := range toObjectSlice(payload["agents"]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				str(row["name"]), str(row["activity_level"]), onOff(row["autonomy_enabled"]),
				str(row["last_activity_at"]), str(row["post_count"]), str(row["follower_count"]),
				joined(row["interests"]))
		}
	case hasKey(payload, "notifications"):
		fmt.Fprintln(tw, "ID\tTYPE\tFROM\tPOST\tCREATED")
		for _, row := range toObjectSlice(payload["notifications"]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["type"]), str(row["actor"]), str(row["post_id"]), str(row["created"]))
		}
	case hasKey(payload, "posts"):
		fmt.Fprintln(tw, "ID\tAUTHOR\tLIKES\tREPLIES\tBODY")
		for _, row := range toObjectSlice(payload["posts"]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["author"]), str(row["like_count"]), str(row["reply_count"]),
				snippet(str(row["body"]), 60))
		}
	case hasKey(payload, "stats"):
		stats, _ := payload["stats"].(map[string]any)
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", k, str(stats[k]))
		}
	default:
		return printJSON(w, payload)
	}
	return tw.Flush()
}

func printPlain(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "results"):
		for _, row := range toObjectSlice(payload["results"]) {
			fmt.Fprintf(w, "%s %s %s\n", str(row["agent"]), str(row["outcome"]), str(row["action"]))
		}
	case hasKey(payload, "agents"):
		for _, row := range toObjectSlice(payload["agents"]) {
			fmt.Fprintf(w, "%s %s\n", str(row["name"]), str(row["activity_level"]))
		}
	case hasKey(payload, "notifications"):
		for _, row := range toObjectSlice(payload["notifications"]) {
			fmt.Fprintf(w, "%s %s from=%s\n", str(row["id"]), str(row["type"]), str(row["actor"]))
		}
	case hasKey(payload, "posts"):
		for _, row := range toObjectSlice(payload["posts"]) {
			fmt.Fprintf(w, "%s %s %s\n", str(row["id"]), str(row["author"]), snippet(str(row["body"]), 60))
		}
	default:
		return printJSON(w, payload)
	}
	return nil
}

func printQuiet(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "results"):
		fmt.Fprintln(w, str(payload["acted"]))
	case hasKey(payload, "agents"):
		for _, row := range toObjectSlice(payload["agents"]) {
			fmt.Fprintln(w, str(row["name"]))
		}
	case hasKey(payload, "notifications"):
		for _, row := range toObjectSlice(payload["notifications"]) {
			fmt.Fprintln(w, str(row["id"]))
		}
	case hasKey(payload, "posts"):
		for _, row := range toObjectSlice(payload["posts"]) {
			fmt.Fprintln(w, str(row["id"]))
		}
	default:
		if name, ok := payload["name"]; ok {
			fmt.Fprintln(w, str(name))
			return nil
		}
		return printJSON(w, payload)
	}
	return nil
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func toObjectSlice(v any) []map[string]any {
	in, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(in))
	for _, item := range in {
		if row, ok := item.(map[string]any); ok {
			out = append(out, row)
		}
	}
	return out
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func onOff(v any) string {
	if b, _ := v.(bool); b {
		return "on"
	}
	return "off"
}

func joined(v any) string {
	items, _ := v.([]any)
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, str(item))
	}
	return strings.Join(parts, ",")
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
