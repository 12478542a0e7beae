package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/pulseplan/pulseplan/internal/constants"
	"github.com/pulseplan/pulseplan/internal/models"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// WebhookExecutor hands activities to the local automation daemon (the
// browser/API client that actually performs the platform action). The
// daemon advertises itself through a lockfile containing `port|pid|secret`;
// the pid is validated against a live process before anything is sent.
type WebhookExecutor struct {
	client *http.Client
}

// DispatchPayload is the wire format sent to the automation daemon.
type DispatchPayload struct {
	Kind   string                `json:"kind"`
	Config models.ActivityConfig `json:"config"`
}

// dispatchResponse is what the daemon reports back.
type dispatchResponse struct {
	Success      bool               `json:"success"`
	Interactions int                `json:"interactions"`
	Detail       string             `json:"detail,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

func NewWebhookExecutor() *WebhookExecutor {
	return &WebhookExecutor{
		client: &http.Client{Timeout: constants.DispatchTimeout},
	}
}

func (e *WebhookExecutor) Dispatch(ctx context.Context, kind models.ActivityKind, config models.ActivityConfig) (*models.ActivityResult, error) {
	lockDir, err := daemonConfigDir()
	if err != nil {
		return nil, err
	}

	port, secret, err := findAndValidateDaemon(filepath.Join(lockDir, constants.ExecutorLockfileName))
	if err != nil {
		return nil, err
	}

	payload := DispatchPayload{
		Kind:   string(kind),
		Config: config,
	}
	return e.send(ctx, port, secret, payload)
}

// daemonConfigDir returns the configuration directory the automation daemon
// writes its lockfile to.
func daemonConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(configDir, constants.AppName), nil
}

func findAndValidateDaemon(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", errors.New("automation daemon is not running")
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("daemon lockfile is malformed")
	}

	port := parts[0]
	if strings.TrimSpace(port) == "" {
		return "", "", errors.New("port in daemon lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in daemon lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", errors.New("invalid process ID in daemon lockfile")
	}
	secret := parts[2]
	if strings.TrimSpace(secret) == "" {
		return "", "", errors.New("secret in daemon lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", errors.New("automation daemon process not running")
	}

	return port, secret, nil
}

func (e *WebhookExecutor) send(ctx context.Context, port, secret string, payload DispatchPayload) (*models.ActivityResult, error) {
	url := fmt.Sprintf("http://127.0.0.1:%s/dispatch", port)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.ExecutorSecretHeader, secret)

	res, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("dispatch failed with status %d: %s", res.StatusCode, string(body))
	}

	var out dispatchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode dispatch response: %w", err)
	}

	result := &models.ActivityResult{
		Success:      out.Success,
		Interactions: out.Interactions,
		Detail:       out.Detail,
		Metrics:      out.Metrics,
	}
	if !out.Success {
		return result, fmt.Errorf("daemon reported failure: %s", out.Detail)
	}
	return result, nil
}
