package spantree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DurationFormat renders a span duration for export.
type DurationFormat int

const (
	// ISO8601 renders durations like "PT5S", "PT2.5S" or "PT1H2M3S".
	ISO8601 DurationFormat = iota
	// TimeSpan renders durations as "[-][d.]hh:mm:ss[.fffffff]", e.g. "00:00:05".
	TimeSpan
)

// ParseDurationFormat maps "iso8601" or "timespan" to a DurationFormat.
func ParseDurationFormat(s string) (DurationFormat, error) {
	switch strings.ToLower(s) {
	case "", "iso8601":
		return ISO8601, nil
	case "timespan":
		return TimeSpan, nil
	default:
		return ISO8601, fmt.Errorf("%w: unknown duration format %q", ErrInvalidArgument, s)
	}
}

// ExportNode is the external shape of one node.
// Field order is the serialized key order.
type ExportNode struct {
	Method   string       `json:"Method"`
	Duration string       `json:"Duration"`
	Children []ExportNode `json:"Children,omitempty"`
}

// ExportOption configures an Exporter.
type ExportOption func(*Exporter)

// WithDurationFormat selects how durations are rendered.
func WithDurationFormat(f DurationFormat) ExportOption {
	return func(e *Exporter) {
		e.format = f
	}
}

// Exporter turns a Forest into its external representation.
// It holds no state beyond its options and is safe for concurrent use.
type Exporter struct {
	format DurationFormat
}

// NewExporter creates an exporter. Durations default to ISO8601.
func NewExporter(opts ...ExportOption) *Exporter {
	e := &Exporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export maps every root of the forest, preserving sibling order.
// Ids and parent ids are internal and never exported. A node without
// children gets a nil Children slice so the field is omitted.
func (e *Exporter) Export(forest Forest) []ExportNode {
	out := make([]ExportNode, len(forest))
	for i := range forest {
		out[i] = e.exportNode(&forest[i])
	}
	return out
}

func (e *Exporter) exportNode(n *Node) ExportNode {
	out := ExportNode{
		Method:   n.Name,
		Duration: e.formatDuration(n.Duration),
	}
	if len(n.Children) == 0 {
		return out
	}
	out.Children = make([]ExportNode, len(n.Children))
	for i := range n.Children {
		out.Children[i] = e.exportNode(&n.Children[i])
	}
	return out
}

// Marshal returns the forest as indented UTF-8 JSON.
func (e *Exporter) Marshal(forest Forest) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, forest); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode writes the forest to w as indented JSON followed by a newline.
func (e *Exporter) Encode(w io.Writer, forest Forest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e.Export(forest)); err != nil {
		return fmt.Errorf("encode forest: %w", err)
	}
	return nil
}

func (e *Exporter) formatDuration(d time.Duration) string {
	if e.format == TimeSpan {
		return FormatTimeSpan(d)
	}
	return FormatISO8601(d)
}

// FormatISO8601 renders d as an ISO 8601 duration using hours, minutes and
// seconds. Fractional seconds keep only significant digits.
func FormatISO8601(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}

	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteString("PT")

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute

	if hours > 0 {
		b.WriteString(strconv.FormatInt(int64(hours), 10))
		b.WriteByte('H')
	}
	if minutes > 0 {
		b.WriteString(strconv.FormatInt(int64(minutes), 10))
		b.WriteByte('M')
	}
	if d > 0 {
		seconds := d / time.Second
		b.WriteString(strconv.FormatInt(int64(seconds), 10))
		if frac := d - seconds*time.Second; frac > 0 {
			digits := fmt.Sprintf("%09d", int64(frac))
			b.WriteByte('.')
			b.WriteString(strings.TrimRight(digits, "0"))
		}
		b.WriteByte('S')
	}
	return b.String()
}

// FormatTimeSpan renders d as "[-][d.]hh:mm:ss[.fffffff]" with 100ns ticks,
// the fraction present only when non-zero.
func FormatTimeSpan(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	ticks := (d - seconds*time.Second) / 100

	if days > 0 {
		fmt.Fprintf(&b, "%d.", int64(days))
	}
	fmt.Fprintf(&b, "%02d:%02d:%02d", int64(hours), int64(minutes), int64(seconds))
	if ticks > 0 {
		fmt.Fprintf(&b, ".%07d", int64(ticks))
	}
	return b.String()
}
