package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/client-go/util/jsonpath"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/server/api"
	"github.com/frobware/go-pfq/store/sqlite"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// render formats v as JSON or JSONPath, or calls table for the
// default format.
func render(v any, flags *OutputFlags, table func(*strings.Builder)) (string, error) {
	switch flags.Format() {
	case OutputFormatJSON:
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(output) + "\n", nil
	case OutputFormatJSONPath:
		return formatJSONPath(v, flags.JSONPathExpr())
	default:
		var b strings.Builder
		table(&b)
		return b.String(), nil
	}
}

func formatJSONPath(v any, expr string) (string, error) {
	jp := jsonpath.New("output")
	if err := jp.Parse(expr); err != nil {
		return "", fmt.Errorf("invalid jsonpath expression %q: %w", expr, err)
	}

	// jsonpath walks generic values, not tagged structs.
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	var data any
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal: %w", err)
	}

	var buf bytes.Buffer
	if err := jp.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("jsonpath execution failed: %w", err)
	}
	return buf.String() + "\n", nil
}

// FormatFunctions formats the function factory listing.
func FormatFunctions(fns []api.Function, flags *OutputFlags) (string, error) {
	return render(fns, flags, func(b *strings.Builder) {
		fmt.Fprintf(b, "%-24s %-10s %s\n", "NAME", "MODULE", "REGISTERED")
		for _, f := range fns {
			module := f.Module
			if module == "" {
				module = "builtin"
			}
			fmt.Fprintf(b, "%-24s %-10s %s\n", f.Name, module, f.Registered.Format(timeLayout))
		}
	})
}

// FormatGroups formats active group descriptions.
func FormatGroups(infos []group.Info, flags *OutputFlags) (string, error) {
	return render(infos, flags, func(b *strings.Builder) {
		fmt.Fprintf(b, "%-4s %-10s %-8s %-14s %-10s %-10s %-10s %-10s %s\n",
			"GID", "POLICY", "OWNER", "STEERING", "RECV", "LOST", "DROP", "CLASSES", "SOCKETS")
		for _, info := range infos {
			owner := "-"
			if info.Owner != 0 {
				owner = fmt.Sprint(info.Owner)
			}
			steering := info.Steering
			if steering == "" {
				steering = "-"
			}
			fmt.Fprintf(b, "%-4d %-10s %-8s %-14s %-10d %-10d %-10d %-10d %s\n",
				info.GID, info.Policy, owner, steering,
				info.Stats.Recv, info.Stats.Lost, info.Stats.Drop,
				len(info.Classes), formatSockets(info.Sockets))
		}
	})
}

// FormatGroupDetail formats one group with its per-class members.
func FormatGroupDetail(info group.Info, flags *OutputFlags) (string, error) {
	return render(info, flags, func(b *strings.Builder) {
		fmt.Fprintf(b, "GROUP  %d  %s\n", info.GID, info.Policy)
		if info.Owner != 0 {
			fmt.Fprintf(b, "  owner    %d\n", info.Owner)
		}
		if info.Steering != "" {
			fmt.Fprintf(b, "  steering %s\n", info.Steering)
		}
		fmt.Fprintf(b, "  sockets  %s\n", formatSockets(info.Sockets))
		fmt.Fprintf(b, "  recv %d  lost %d  drop %d\n", info.Stats.Recv, info.Stats.Lost, info.Stats.Drop)

		b.WriteString("\n  CLASSES\n")
		if len(info.Classes) == 0 {
			b.WriteString("  (none)\n")
			return
		}
		fmt.Fprintf(b, "  %-6s %s\n", "CLASS", "SOCKETS")
		for _, c := range info.Classes {
			fmt.Fprintf(b, "  %-6d %s\n", c.Class, formatSockets(c.Sockets))
		}
	})
}

// FormatStats formats the counters of one group.
func FormatStats(gid pfq.GroupID, st group.Stats, flags *OutputFlags) (string, error) {
	v := struct {
		GID   pfq.GroupID `json:"gid"`
		Stats group.Stats `json:"stats"`
	}{gid, st}
	return render(v, flags, func(b *strings.Builder) {
		fmt.Fprintf(b, "%-4s %-10s %-10s %s\n", "GID", "RECV", "LOST", "DROP")
		fmt.Fprintf(b, "%-4d %-10d %-10d %d\n", gid, st.Recv, st.Lost, st.Drop)
	})
}

// FormatHistory formats recorded samples, newest first.
func FormatHistory(samples []sqlite.Sample, flags *OutputFlags) (string, error) {
	return render(samples, flags, func(b *strings.Builder) {
		fmt.Fprintf(b, "%-25s %-10s %-10s %-10s %-8s %s\n", "RECORDED", "RECV", "LOST", "DROP", "RUN", "SOCKETS")
		for _, s := range samples {
			fmt.Fprintf(b, "%-25s %-10d %-10d %-10d %-8s %s\n",
				s.At.Format(timeLayout), s.Stats.Recv, s.Stats.Lost, s.Stats.Drop,
				s.RunID.String()[:8], formatSockets(s.Sockets))
		}
	})
}

// FormatDeliveries formats the outcome of an injected frame.
func FormatDeliveries(ds []api.Delivery, flags *OutputFlags) (string, error) {
	return render(ds, flags, func(b *strings.Builder) {
		if len(ds) == 0 {
			b.WriteString("No group took the frame\n")
			return
		}
		fmt.Fprintf(b, "%-4s %-10s %s\n", "GID", "KERNEL", "SOCKETS")
		for _, d := range ds {
			fmt.Fprintf(b, "%-4d %-10t %s\n", d.GID, d.ToKernel, formatSockets(d.Sockets))
		}
	})
}

