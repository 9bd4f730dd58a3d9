package vulnengine

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskStatusIsTerminal(t *testing.T) {
	cases := map[string]bool{
		"Done":        true,
		"Stopped":     true,
		"Interrupted": true,
		"Running":     false,
		"Requested":   false,
		"":            false,
	}
	for status, want := range cases {
		got := TaskStatus{Status: status}.IsTerminal()
		require.Equal(t, want, got, "status %q", status)
	}
}

func TestXMLEscape(t *testing.T) {
	require.Equal(t, "a &amp; b &lt;c&gt;", xmlEscape("a & b <c>"))
}

// fakeGMPServer answers GMP commands over a Unix socket with canned XML
// responses keyed by which element the client just sent, mirroring the
// scanner/manager pairing the real GCE daemon provides.
func fakeGMPServer(t *testing.T, socketPath string) {
	t.Helper()
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 4096)
		respond := func(xml string) bool {
			n, err := conn.Read(buf)
			if err != nil {
				return false
			}
			_ = n
			_, err = conn.Write([]byte(xml))
			return err == nil
		}

		if !respond(`<authenticate_response status="200" status_text="OK"/>`) {
			return
		}
		if !respond(`<create_target_response status="201" status_text="OK" id="target-1"/>`) {
			return
		}
		if !respond(`<create_task_response status="201" status_text="OK" id="task-1"/>`) {
			return
		}
		if !respond(`<start_task_response status="202" status_text="OK"/>`) {
			return
		}
		if !respond(`<get_tasks_response status="200" status_text="OK"><task><status>Running</status><progress>42</progress></task></get_tasks_response>`) {
			return
		}
		if !respond(`<get_tasks_response status="200" status_text="OK"><task><status>Done</status><progress>100</progress><last_report><report id="report-1"/></last_report></task></get_tasks_response>`) {
			return
		}
		respond(`<get_reports_response status="200" status_text="OK"><report id="report-1">full report body</report></get_reports_response>`)
	}()
}

func TestClientFullSession(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "gmp.sock")
	fakeGMPServer(t, socketPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, socketPath, "admin", "admin")
	require.NoError(t, err)
	defer client.Close()

	targetID, err := client.CreateTarget("vaptord-test", "192.0.2.10", "port-list-1")
	require.NoError(t, err)
	require.Equal(t, "target-1", targetID)

	taskID, err := client.CreateTask("vaptord scan", "config-1", targetID, "scanner-1")
	require.NoError(t, err)
	require.Equal(t, "task-1", taskID)

	require.NoError(t, client.StartTask(taskID))

	var progressSeen []int
	status, err := client.Poll(ctx, taskID, 10*time.Millisecond, func(progress int, s string) {
		progressSeen = append(progressSeen, progress)
	})
	require.NoError(t, err)
	require.Equal(t, "Done", status.Status)
	require.Equal(t, "report-1", status.ReportID)
	require.Equal(t, []int{42, 100}, progressSeen)

	report, err := client.GetReport(status.ReportID)
	require.NoError(t, err)
	require.Contains(t, string(report), "full report body")
}
