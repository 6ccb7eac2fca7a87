package telemetry

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestAlertsFileValid verifies the Prometheus alerts configuration is valid YAML.
func TestAlertsFileValid(t *testing.T) {
	alertsPath := "../../deploy/prometheus/alerts.yml"

	data, err := os.ReadFile(alertsPath)
	if err != nil {
		t.Skipf("Skipping test: alerts file not found at %s", alertsPath)
		return
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		t.Fatalf("Invalid YAML in alerts.yml: %v", err)
	}

	groups, ok := config["groups"]
	if !ok {
		t.Error("alerts.yml missing 'groups' key")
		return
	}

	groupsList, ok := groups.([]interface{})
	if !ok || len(groupsList) == 0 {
		t.Error("alerts.yml 'groups' is empty or invalid")
	}

	t.Logf("Successfully parsed alerts.yml with %d alert groups", len(groupsList))
}

// TestCriticalAlertsPresent verifies critical alerts are defined.
func TestCriticalAlertsPresent(t *testing.T) {
	alertsPath := "../../deploy/prometheus/alerts.yml"

	data, err := os.ReadFile(alertsPath)
	if err != nil {
		t.Skipf("Skipping test: alerts file not found at %s", alertsPath)
		return
	}

	content := string(data)

	criticalAlerts := []string{
		"HighAPIErrorRate",
		"HighSlotRejectionRate",
		"NoMachinesRegistered",
	}

	for _, alertName := range criticalAlerts {
		if !strings.Contains(content, alertName) {
			t.Errorf("Critical alert '%s' not found in alerts.yml", alertName)
		}
	}
}

// TestAlertLabels verifies alerts have required labels.
func TestAlertLabels(t *testing.T) {
	alertsPath := "../../deploy/prometheus/alerts.yml"

	data, err := os.ReadFile(alertsPath)
	if err != nil {
		t.Skipf("Skipping test: alerts file not found at %s", alertsPath)
		return
	}

	type Alert struct {
		Alert       string            `yaml:"alert"`
		Expr        string            `yaml:"expr"`
		For         string            `yaml:"for"`
		Labels      map[string]string `yaml:"labels"`
		Annotations map[string]string `yaml:"annotations"`
	}

	type Group struct {
		Name  string  `yaml:"name"`
		Rules []Alert `yaml:"rules"`
	}

	type Config struct {
		Groups []Group `yaml:"groups"`
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		t.Fatalf("Failed to parse alerts.yml: %v", err)
	}

	for _, group := range config.Groups {
		for _, alert := range group.Rules {
			if alert.Alert == "" {
				continue // Skip non-alert rules
			}

			if _, ok := alert.Labels["severity"]; !ok {
				t.Errorf("Alert '%s' missing 'severity' label", alert.Alert)
			}

			if len(alert.Annotations) == 0 {
				t.Errorf("Alert '%s' missing annotations", alert.Alert)
			}

			if _, ok := alert.Annotations["summary"]; !ok {
				t.Errorf("Alert '%s' missing 'summary' annotation", alert.Alert)
			}
		}
	}
}

// TestAlertExpressionLabels verifies every label selector used in alert
// expressions names a label the referenced metric actually exports. A selector
// on a nonexistent label matches no series and silently disarms the alert.
func TestAlertExpressionLabels(t *testing.T) {
	alertsPath := "../../deploy/prometheus/alerts.yml"

	data, err := os.ReadFile(alertsPath)
	if err != nil {
		t.Skipf("Skipping test: alerts file not found at %s", alertsPath)
		return
	}

	metricsSource, err := os.ReadFile("metrics.go")
	if err != nil {
		t.Fatalf("Failed to read metrics.go: %v", err)
	}

	// Labels per metric, mirroring the declarations in metrics.go.
	declaredLabels := map[string][]string{
		"machinepark_api_request_duration_seconds": {"method", "endpoint", "status"},
		"machinepark_api_requests_total":           {"method", "endpoint", "status"},
		"machinepark_slot_admissions_total":        {"outcome", "reason"},
		"machinepark_api_active_connections":       {},
		"machinepark_api_websocket_connections":    {},
		"machinepark_machines_registered":          {},
		"machinepark_machines_busy":                {},
	}
	for metric, labels := range declaredLabels {
		if !strings.Contains(string(metricsSource), metric) {
			t.Fatalf("declaredLabels out of date: metric '%s' not in metrics.go", metric)
		}
		for _, label := range labels {
			if !strings.Contains(string(metricsSource), `"`+label+`"`) {
				t.Fatalf("declaredLabels out of date: label '%s' not in metrics.go", label)
			}
		}
	}

	selectorRe := regexp.MustCompile(`(machinepark_[a-z_]+)\{([^}]*)\}`)
	labelRe := regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)\s*(=~|!~|!=|=)`)

	for _, match := range selectorRe.FindAllStringSubmatch(string(data), -1) {
		metric := match[1]
		// Histogram series carry the base metric's labels plus 'le'.
		base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(metric, "_bucket"), "_sum"), "_count")

		labels, known := declaredLabels[base]
		if !known {
			t.Errorf("Alert expression references unknown metric '%s'", metric)
			continue
		}

		for _, labelMatch := range labelRe.FindAllStringSubmatch(match[2], -1) {
			label := labelMatch[1]
			if label == "le" {
				continue
			}
			found := false
			for _, declared := range labels {
				if declared == label {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Alert selector on '%s' uses label '%s' which the metric does not export (has %v)", metric, label, labels)
			}
		}
	}
}

// TestMetricsExist verifies key metrics used in alerts actually exist.
func TestMetricsExist(t *testing.T) {
	expectedMetrics := []string{
		"machinepark_api_request_duration_seconds",
		"machinepark_api_requests_total",
		"machinepark_api_active_connections",
		"machinepark_api_websocket_connections",
		"machinepark_slot_admissions_total",
		"machinepark_machines_registered",
		"machinepark_machines_busy",
	}

	data, err := os.ReadFile("metrics.go")
	if err != nil {
		t.Fatalf("Failed to read metrics.go: %v", err)
	}

	content := string(data)

	for _, metric := range expectedMetrics {
		if !strings.Contains(content, metric) {
			t.Errorf("Expected metric '%s' not found in metrics.go", metric)
		}
	}

	t.Logf("Verified %d metrics are declared in metrics.go", len(expectedMetrics))
}
