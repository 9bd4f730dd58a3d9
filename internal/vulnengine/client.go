// Package vulnengine is a minimal client for the Greenbone Management
// Protocol (GMP) the external vulnerability engine speaks over a Unix
// domain socket — request/response XML commands, authenticate once then
// create_target/create_task/start_task/get_tasks/get_reports, the same
// command sequence the source's gvm-tools-based GCEScanner drives. No Go
// GMP client exists in the example pack (gvm-tools is Python-only), so
// this is a deliberately small hand-rolled client: one XML command per
// GMP verb this stage actually needs, not a general protocol library.
package vulnengine

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"time"
)

// Client holds one authenticated GMP session over a Unix socket.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial opens the socket and authenticates, mirroring connect_gce +
// gmp.authenticate in the source scanner.
func Dial(ctx context.Context, socketPath, username, password string) (*Client, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("vulnengine: dial %s: %w", socketPath, err)
	}
	c := &Client{conn: conn, r: bufio.NewReader(conn)}

	cmd := fmt.Sprintf(`<authenticate><credentials><username>%s</username><password>%s</password></credentials></authenticate>`,
		xmlEscape(username), xmlEscape(password))
	var resp authenticateResponse
	if err := c.roundTrip(cmd, &resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("vulnengine: authenticate: %w", err)
	}
	if resp.Status[0] != '2' {
		conn.Close()
		return nil, fmt.Errorf("vulnengine: authenticate failed: %s %s", resp.Status, resp.StatusText)
	}
	return c, nil
}

// Close closes the underlying socket.
func (c *Client) Close() error { return c.conn.Close() }

type authenticateResponse struct {
	Status     string `xml:"status,attr"`
	StatusText string `xml:"status_text,attr"`
}

type idResponse struct {
	Status     string `xml:"status,attr"`
	StatusText string `xml:"status_text,attr"`
	ID         string `xml:"id,attr"`
}

// CreateTarget registers a scan target by host address and named port
// list, returning GCE's internal target id.
func (c *Client) CreateTarget(name, host, portListID string) (string, error) {
	cmd := fmt.Sprintf(`<create_target><name>%s</name><hosts>%s</hosts><port_list id="%s"/></create_target>`,
		xmlEscape(name), xmlEscape(host), xmlEscape(portListID))
	var resp idResponse
	if err := c.roundTrip(cmd, &resp); err != nil {
		return "", fmt.Errorf("vulnengine: create_target: %w", err)
	}
	if resp.Status[0] != '2' {
		return "", fmt.Errorf("vulnengine: create_target failed: %s %s", resp.Status, resp.StatusText)
	}
	return resp.ID, nil
}

// CreateTask registers a scan task against targetID using configID/
// scannerID, returning GCE's internal task id.
func (c *Client) CreateTask(name, configID, targetID, scannerID string) (string, error) {
	cmd := fmt.Sprintf(`<create_task><name>%s</name><config id="%s"/><target id="%s"/><scanner id="%s"/></create_task>`,
		xmlEscape(name), xmlEscape(configID), xmlEscape(targetID), xmlEscape(scannerID))
	var resp idResponse
	if err := c.roundTrip(cmd, &resp); err != nil {
		return "", fmt.Errorf("vulnengine: create_task: %w", err)
	}
	if resp.Status[0] != '2' {
		return "", fmt.Errorf("vulnengine: create_task failed: %s %s", resp.Status, resp.StatusText)
	}
	return resp.ID, nil
}

// StartTask starts a previously created task.
func (c *Client) StartTask(taskID string) error {
	cmd := fmt.Sprintf(`<start_task task_id="%s"/>`, xmlEscape(taskID))
	var resp idResponse
	if err := c.roundTrip(cmd, &resp); err != nil {
		return fmt.Errorf("vulnengine: start_task: %w", err)
	}
	if resp.Status[0] != '2' {
		return fmt.Errorf("vulnengine: start_task failed: %s %s", resp.Status, resp.StatusText)
	}
	return nil
}

// TaskStatus is one get_tasks poll's parsed task state.
type TaskStatus struct {
	Status   string
	Progress int
	ReportID string // empty until the task reaches a terminal status
}

type getTasksResponse struct {
	Task struct {
		Status   string `xml:"status"`
		Progress int    `xml:"progress"`
		LastReport struct {
			Report struct {
				ID string `xml:"id,attr"`
			} `xml:"report"`
		} `xml:"last_report"`
	} `xml:"task"`
}

// GetTaskStatus polls a task's current status/progress, and its report id
// once the task reaches a terminal state (Done/Stopped/Interrupted).
func (c *Client) GetTaskStatus(taskID string) (TaskStatus, error) {
	cmd := fmt.Sprintf(`<get_tasks task_id="%s"/>`, xmlEscape(taskID))
	var resp getTasksResponse
	if err := c.roundTrip(cmd, &resp); err != nil {
		return TaskStatus{}, fmt.Errorf("vulnengine: get_tasks: %w", err)
	}
	return TaskStatus{
		Status:   resp.Task.Status,
		Progress: resp.Task.Progress,
		ReportID: resp.Task.LastReport.Report.ID,
	}, nil
}

// IsTerminal reports whether s is one of GCE's terminal task states.
func (s TaskStatus) IsTerminal() bool {
	switch s.Status {
	case "Done", "Stopped", "Interrupted":
		return true
	default:
		return false
	}
}

// GetReport fetches the full XML report for a completed task, with
// per-result detail (details="1", matching get_scan_report's
// gmp.get_report(report_id, details=True)).
func (c *Client) GetReport(reportID string) ([]byte, error) {
	cmd := fmt.Sprintf(`<get_reports report_id="%s" details="1"/>`, xmlEscape(reportID))
	raw, err := c.send(cmd)
	if err != nil {
		return nil, fmt.Errorf("vulnengine: get_reports: %w", err)
	}
	return raw, nil
}

// Poll blocks until taskID reaches a terminal status or ctx is cancelled,
// calling onProgress after every status check whose progress changed —
// the Go equivalent of monitor_scan_progress's polling loop.
func (c *Client) Poll(ctx context.Context, taskID string, interval time.Duration, onProgress func(progress int, status string)) (TaskStatus, error) {
	last := -1
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		status, err := c.GetTaskStatus(taskID)
		if err != nil {
			return TaskStatus{}, err
		}
		if status.Progress != last {
			last = status.Progress
			if onProgress != nil {
				onProgress(status.Progress, status.Status)
			}
		}
		if status.IsTerminal() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return TaskStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// roundTrip sends cmd and unmarshals the response into out.
func (c *Client) roundTrip(cmd string, out any) error {
	raw, err := c.send(cmd)
	if err != nil {
		return err
	}
	return xml.Unmarshal(raw, out)
}

// send writes one GMP command and reads back one complete XML element —
// GMP is request/response over a persistent stream, one top-level element
// per reply, so a single xml.Decoder.Token pass over the stream reader
// reads exactly that element and no further.
func (c *Client) send(cmd string) ([]byte, error) {
	if _, err := c.conn.Write([]byte(cmd)); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	dec := xml.NewDecoder(c.r)
	var depth int
	var buf []byte
	enc := xml.NewEncoder(discardWriter{&buf})
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, fmt.Errorf("re-encode response: %w", err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				enc.Flush()
				return buf, nil
			}
		}
	}
}

type discardWriter struct{ buf *[]byte }

func (w discardWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

func xmlEscape(s string) string {
	var b []byte
	buf := discardWriter{&b}
	if err := xml.EscapeText(buf, []byte(s)); err != nil {
		return s
	}
	return string(b)
}
