//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ushasricpu/paper/internal/config"
	"github.com/Ushasricpu/paper/internal/mqtt"
	"github.com/Ushasricpu/paper/internal/telemetry"
)

const repoRootRel = ".."             // relative to ./e2e
const mainPkgRel = "./cmd/dashboard" // server entrypoint

const mosquittoConf = "listener 1883\nallow_anonymous true\n"

func TestSmoke_Healthz(t *testing.T) {
	repoRoot := repoRootPath(t)
	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := startServer(t, bin, addr,
		"MQTT_ENABLED=false",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "bus_readings.db"),
	)

	client := &http.Client{Timeout: 2 * time.Second}
	url := "http://" + addr + "/healthz"
	waitForOK(t, client, url, 10*time.Second)

	var body map[string]string
	getJSON(t, client, url, &body)
	if body["status"] != "ok" {
		t.Fatalf("body.status=%q want=%q", body["status"], "ok")
	}

	stopServer(t, cmd)
}

func TestSmoke_MQTTToDashboard(t *testing.T) {
	host, port := startMosquitto(t)

	repoRoot := repoRootPath(t)
	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := startServer(t, bin, addr,
		"MQTT_ENABLED=true",
		"MQTT_BROKER="+host,
		"MQTT_PORT="+strconv.Itoa(port),
		"MQTT_CLIENT_ID=e2e-server",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "bus_readings.db"),
	)

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr
	waitForOK(t, client, base+"/healthz", 10*time.Second)

	pub, err := mqtt.NewPublisher(config.Config{
		MQTTBroker:   host,
		MQTTPort:     port,
		MQTTClientID: "e2e",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	t.Cleanup(pub.Disconnect)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pub.Connect(ctx); err != nil {
		t.Fatalf("publisher connect: %v", err)
	}

	ist := time.FixedZone("IST", 5*3600+1800)
	for i, bus := range []string{"bus1", "bus2", "bus1"} {
		lat, lng, temp := 17.39+float64(i)*0.001, 78.40+float64(i)*0.001, 30+float64(i)
		err := pub.PublishTelemetry(telemetry.Telemetry{
			BusNo:       bus,
			Timestamp:   time.Date(2024, 7, 1, 10, i, 0, 0, ist),
			Latitude:    &lat,
			Longitude:   &lng,
			Temperature: &temp,
		})
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var readings telemetry.Response
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		getJSON(t, client, base+"/temperature-data?start_date=2024-07-01&end_date=2024-07-01", &readings)
		if len(readings.Data) == 3 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if len(readings.Data) != 3 {
		t.Fatalf("feed returned %d readings; want 3", len(readings.Data))
	}

	resp, err := client.Post(base+"/api/v1/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	var summary struct {
		ID    string `json:"id"`
		Buses int    `json:"buses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	_ = resp.Body.Close()
	if summary.Buses != 2 {
		t.Fatalf("session buses = %d; want 2", summary.Buses)
	}

	var layers struct {
		Seq uint64            `json:"seq"`
		Ops []json.RawMessage `json:"ops"`
	}
	getJSON(t, client, base+"/api/v1/sessions/"+summary.ID+"/layers?since=0", &layers)
	if len(layers.Ops) != 2 {
		t.Errorf("layer ops = %d; want 2 (one overlay per bus)", len(layers.Ops))
	}

	stopServer(t, cmd)
}

func startMosquitto(t *testing.T) (string, int) {
	t.Helper()
	ctx := context.Background()

	confDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(confDir, "mosquitto.conf"), []byte(mosquittoConf), 0o644); err != nil {
		t.Fatalf("write mosquitto.conf: %v", err)
	}

	mqttPort := nat.Port("1883/tcp")
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Binds = append(hc.Binds, confDir+":/mosquitto/config:ro")
		},
		WaitingFor: wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, mapped.Int()
}

func startServer(t *testing.T, bin, addr string, env ...string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"DATA_SOURCE_URL=http://"+addr+"/temperature-data",
		"FEED_ENABLED=true",
		"DB_DRIVER=sqlite3",
	)
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

func getJSON(t *testing.T, client *http.Client, url string, out any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status=%d want=%d", url, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	tmp := t.TempDir()
	out := filepath.Join(tmp, "bus-heatmap")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}

