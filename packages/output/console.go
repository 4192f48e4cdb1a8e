package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	qhttp "github.com/abdul-hamid-achik/qakit/packages/http"
	"github.com/abdul-hamid-achik/qakit/packages/rabbitmq"
)

// Console writes human-readable output.
type Console struct {
	writer  io.Writer
	verbose bool
	noColor bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
	dim    *color.Color
}

type ConsoleOption func(*Console)

func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.noColor {
		color.NoColor = true
	}
	c.green = color.New(color.FgGreen)
	c.red = color.New(color.FgRed)
	c.yellow = color.New(color.FgYellow)
	c.cyan = color.New(color.FgCyan)
	c.bold = color.New(color.Bold)
	c.dim = color.New(color.Faint)

	return c
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(c *Console) {
		c.writer = w
	}
}

// WithVerbose prints headers, cookies and delivery properties.
func WithVerbose(v bool) ConsoleOption {
	return func(c *Console) {
		c.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(c *Console) {
		c.noColor = nc
	}
}

func (c *Console) statusColor(code int) *color.Color {
	r := qhttp.Response{StatusCode: code}
	switch {
	case r.IsServerError():
		return c.red
	case r.IsClientError():
		return c.yellow
	case r.IsRedirect():
		return c.cyan
	case r.IsSuccess():
		return c.green
	default:
		return c.dim
	}
}

// Response prints a response envelope: status line, then headers and
// cookies when verbose and present, then the body.
func (c *Console) Response(method, url string, resp *qhttp.Response, elapsed time.Duration) {
	c.bold.Fprintf(c.writer, "%s %s", method, url)
	fmt.Fprint(c.writer, " ")
	c.statusColor(resp.StatusCode).Fprintf(c.writer, "%d", resp.StatusCode)
	c.dim.Fprintf(c.writer, " (%s)\n", formatLatency(elapsed))

	if c.verbose && resp.Header != nil {
		names := make([]string, 0, len(resp.Header))
		for name := range resp.Header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c.cyan.Fprintf(c.writer, "%s", name)
			fmt.Fprintf(c.writer, ": %s\n", strings.Join(resp.Header[name], ", "))
		}
	}
	if c.verbose {
		for _, cookie := range resp.Cookies {
			c.cyan.Fprint(c.writer, "Cookie")
			fmt.Fprintf(c.writer, ": %s=%s\n", cookie.Name, cookie.Value)
		}
	}

	if len(resp.Body) > 0 {
		fmt.Fprintln(c.writer)
		c.body(resp.Body)
	}
}

func (c *Console) body(body []byte) {
	if !gjson.ValidBytes(body) {
		fmt.Fprintln(c.writer, string(body))
		return
	}

	formatted := pretty.Pretty(body)
	if !color.NoColor {
		formatted = pretty.Color(formatted, nil)
	}
	fmt.Fprint(c.writer, string(formatted))
}

// Value prints a single selected value.
func (c *Console) Value(v gjson.Result) {
	if !v.Exists() {
		c.dim.Fprintln(c.writer, "(no match)")
		return
	}
	if v.IsObject() || v.IsArray() {
		c.body([]byte(v.Raw))
		return
	}
	fmt.Fprintln(c.writer, v.String())
}

// Delivery prints a fetched message, or a notice when the queue was empty.
func (c *Console) Delivery(queue string, d *rabbitmq.Delivery) {
	if d == nil {
		c.yellow.Fprintf(c.writer, "Queue '%s' is empty\n", queue)
		return
	}

	c.bold.Fprintf(c.writer, "Message from '%s'", queue)
	c.dim.Fprintf(c.writer, " (tag %d, %d remaining)\n", d.Metadata.DeliveryTag, d.Metadata.MessageCount)

	if c.verbose {
		p := d.Properties
		fmt.Fprintf(c.writer, "Content-Type: %s\n", p.ContentType)
		fmt.Fprintf(c.writer, "Delivery-Mode: %s\n", p.DeliveryMode)
		if p.CorrelationID != "" {
			fmt.Fprintf(c.writer, "Correlation-Id: %s\n", p.CorrelationID)
		}
		if d.Metadata.Redelivered {
			c.yellow.Fprintln(c.writer, "Redelivered")
		}
	}

	fmt.Fprintln(c.writer)
	c.body(d.Body)
}

// Published confirms a publish.
func (c *Console) Published(queue string, size int, mode rabbitmq.DeliveryMode) {
	c.green.Fprint(c.writer, "✓ ")
	fmt.Fprintf(c.writer, "Published %d bytes to '%s' (%s)\n", size, queue, mode)
}

// Error prints an error message
func (c *Console) Error(format string, args ...any) {
	c.red.Fprintf(c.writer, "Error: "+format+"\n", args...)
}

// Info prints an info message
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintf(c.writer, format+"\n", args...)
}
