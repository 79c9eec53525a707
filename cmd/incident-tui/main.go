package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"incidentdesk/internal/logger"
	"incidentdesk/internal/query"
)

const (
	defaultTitle        = "Incident Query System"
	defaultTagline      = "AI-powered incident management assistant"
	defaultSourceLabel  = "AWS CloudWatch"
	historyLineChars    = 180
	logBufferSize       = 50
	healthTimeout       = 5 * time.Second
	defaultHealthPeriod = 15
)

type appConfig struct {
	endpoint              string
	timeoutSeconds        int
	healthIntervalSeconds int
	sourceLabel           string
	logFile               string
	logLevel              string
	logFormat             string
	altScreen             bool
	mouse                 bool
}

func parseFlags(args []string) (appConfig, error) {
	cfg := appConfig{}
	fs := flag.NewFlagSet("incident-tui", flag.ContinueOnError)
	fs.StringVar(&cfg.endpoint, "endpoint", envOr("INCIDENT_TUI_ENDPOINT", query.DefaultEndpoint), "Query endpoint URL (POST {\"question\": ...})")
	fs.IntVar(&cfg.timeoutSeconds, "timeout", envOrInt("INCIDENT_TUI_TIMEOUT", int(query.DefaultTimeout/time.Second)), "Per-question timeout seconds")
	fs.IntVar(&cfg.healthIntervalSeconds, "health-interval", envOrInt("INCIDENT_TUI_HEALTH_INTERVAL", defaultHealthPeriod), "Backend health probe interval seconds (0 disables)")
	fs.StringVar(&cfg.sourceLabel, "source-label", envOr("INCIDENT_TUI_SOURCE_LABEL", defaultSourceLabel), "Source label shown on incident cards")
	fs.StringVar(&cfg.logFile, "log-file", envOr("INCIDENT_TUI_LOG_FILE", ""), "Structured log file (empty discards logs)")
	fs.StringVar(&cfg.logLevel, "log-level", envOr("INCIDENT_TUI_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.logFormat, "log-format", envOr("INCIDENT_TUI_LOG_FORMAT", "text"), "Log format (text|json)")
	fs.BoolVar(&cfg.altScreen, "alt-screen", envOrBool("INCIDENT_TUI_ALT_SCREEN", true), "Use alternate screen buffer")
	fs.BoolVar(&cfg.mouse, "mouse", envOrBool("INCIDENT_TUI_MOUSE", true), "Enable mouse wheel scrolling")
	if err := fs.Parse(args); err != nil {
		return appConfig{}, err
	}

	cfg.endpoint = strings.TrimSpace(cfg.endpoint)
	if cfg.endpoint == "" {
		cfg.endpoint = query.DefaultEndpoint
	}
	cfg.timeoutSeconds = clampInt(cfg.timeoutSeconds, 1, 600)
	cfg.healthIntervalSeconds = clampInt(cfg.healthIntervalSeconds, 0, 3600)
	cfg.sourceLabel = strings.TrimSpace(cfg.sourceLabel)
	return cfg, nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			wrapped = append(wrapped, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if len(current)+1+len(word) <= width {
				current += " " + word
				continue
			}
			wrapped = append(wrapped, current)
			current = word
		}
		wrapped = append(wrapped, current)
	}
	return strings.Join(wrapped, "\n")
}

func truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(text) <= limit {
		return text
	}
	if limit <= 3 {
		return text[:limit]
	}
	return text[:limit-3] + "..."
}

func compactSingleLine(text string, limit int) string {
	compact := strings.Join(strings.Fields(text), " ")
	return truncate(compact, limit)
}

func nullCoalesce(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func main() {
	_ = godotenv.Load()

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	closer, err := logger.Setup(logger.Config{Path: cfg.logFile, Level: cfg.logLevel, Format: cfg.logFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "incident-tui: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	client := query.NewHTTPClient(query.Config{
		Endpoint: cfg.endpoint,
		Timeout:  time.Duration(cfg.timeoutSeconds) * time.Second,
	})
	m := newModel(cfg, client)
	defer m.ctrl.Close()

	opts := []tea.ProgramOption{}
	if cfg.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "incident-tui fatal error: %v\n", err)
		os.Exit(1)
	}
}
