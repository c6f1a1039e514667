//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	repoRootRel = ".."
	mainPkgRel  = "./cmd"
	fixtureRel  = "internal/mesonet/testdata/201808301745.mdf"
	mqttPort    = nat.Port("1883/tcp")
	topicPrefix = "mesonet/statistics"
)

type broker struct {
	host string
	port string
}

func TestSmoke_ReportPublishAndServe(t *testing.T) {
	repoRoot := repoRootPath(t)
	b := startMosquitto(t)
	bin := buildBinary(t, repoRoot)

	dataDir := t.TempDir()
	copyFixture(t, repoRoot, dataDir)
	sqlitePath := filepath.Join(t.TempDir(), "stats.db")

	env := append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"DATA_DIR="+dataDir+string(os.PathSeparator),
		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+sqlitePath,
		"MQTT_BROKER="+b.host,
		"MQTT_PORT="+b.port,
		"MQTT_CLIENT_ID=mesostats-e2e",
		"MQTT_TOPIC_PREFIX="+topicPrefix,
	)

	// Report run: parse, print, archive, publish.
	var stdout bytes.Buffer
	report := exec.Command(bin, "report", "2018", "08", "30", "17", "45")
	report.Env = env
	report.Stdout = &stdout
	report.Stderr = os.Stderr
	if err := report.Run(); err != nil {
		t.Fatalf("report run: %v", err)
	}
	if !strings.Contains(stdout.String(), "=== 2018-08-30 17:45:00 ===") {
		t.Fatalf("unexpected report:\n%s", stdout.String())
	}

	msgs := collectRetained(t, b, 9, 10*time.Second)
	hi, ok := msgs[topicPrefix+"/TAIR/maximum"]
	if !ok {
		t.Fatalf("no TAIR maximum message, got topics %v", keys(msgs))
	}
	if hi["station_id"] != "ALTU" || hi["value"] != 36.5 {
		t.Errorf("TAIR maximum payload = %v", hi)
	}

	// Serve the archived run.
	addr := pickFreeAddr(t)
	serve := exec.Command(bin, "serve")
	serve.Env = append(env, "HTTP_ADDR="+addr)
	serve.Stdout = os.Stdout
	serve.Stderr = os.Stderr
	if err := serve.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = serve.Process.Kill()
		_, _ = serve.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	waitForOK(t, client, "http://"+addr+"/healthz", 5*time.Second)

	resp, err := client.Get("http://" + addr + "/api/v1/runs/201808301745/statistics")
	if err != nil {
		t.Fatalf("GET statistics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	var body struct {
		Run struct {
			StationCount int `json:"stationCount"`
		} `json:"run"`
		Statistics []map[string]any `json:"statistics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if body.Run.StationCount != 4 || len(body.Statistics) != 9 {
		t.Fatalf("stationCount=%d statistics=%d, want 4 and 9", body.Run.StationCount, len(body.Statistics))
	}

	stopServer(t, serve)
}

func startMosquitto(t *testing.T) broker {
	t.Helper()

	confDir := t.TempDir()
	conf := "listener 1883\nallow_anonymous true\n"
	if err := os.WriteFile(filepath.Join(confDir, "mosquitto.conf"), []byte(conf), 0o644); err != nil {
		t.Fatalf("write mosquitto.conf: %v", err)
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Binds = append(hc.Binds, confDir+":/mosquitto/config:ro")
		},
		WaitingFor: wait.ForLog("running").WithStartupTimeout(30 * time.Second),
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
	port, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return broker{host: host, port: port.Port()}
}

// collectRetained subscribes to every statistics topic and waits until want
// distinct topics have delivered a message.
func collectRetained(t *testing.T, b broker, want int, timeout time.Duration) map[string]map[string]any {
	t.Helper()

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", b.host, b.port)).
		SetClientID("mesostats-e2e-sub")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscriber connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	var mu sync.Mutex
	got := make(map[string]map[string]any)
	done := make(chan struct{})
	var once sync.Once

	token := client.Subscribe(topicPrefix+"/#", 1, func(_ mqtt.Client, msg mqtt.Message) {
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			return
		}
		mu.Lock()
		got[msg.Topic()] = payload
		n := len(got)
		mu.Unlock()
		if n >= want {
			once.Do(func() { close(done) })
		}
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}

	select {
	case <-done:
	case <-time.After(timeout):
		mu.Lock()
		defer mu.Unlock()
		t.Fatalf("received %d of %d retained messages: %v", len(got), want, keys(got))
	}

	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]map[string]any, len(got))
	for k, v := range got {
		out[k] = v
	}
	return out
}

func keys(m map[string]map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func copyFixture(t *testing.T, repoRoot, dataDir string) {
	t.Helper()

	b, err := os.ReadFile(filepath.Join(repoRoot, fixtureRel))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, filepath.Base(fixtureRel)), b, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
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

	out := filepath.Join(t.TempDir(), "mesostats")

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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
