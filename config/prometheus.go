package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Global struct {
	ScrapeInterval string         `yaml:"scrape_interval"`
	ExternalLabels ExternalLabels `yaml:"external_labels"`
}

type ExternalLabels struct {
	Monitor string `yaml:"monitor"`
}

type ScrapeConfig struct {
	JobName        string         `yaml:"job_name"`
	ScrapeInterval string         `yaml:"scrape_interval"`
	StaticConfigs  []StaticConfig `yaml:"static_configs"`
}

type StaticConfig struct {
	Targets []string `yaml:"targets"`
}

type PromConfig struct {
	Global        Global         `yaml:"global"`
	ScrapeConfigs []ScrapeConfig `yaml:"scrape_configs"`
}

// PrometheusConfig builds a scrape config covering the registry and the given relays and users.
// Every participant exposes /metrics on its own listening port.
func (c *Config) PrometheusConfig(relayIDs, userIDs []int) PromConfig {
	promCfg := PromConfig{
		Global: Global{
			ScrapeInterval: "15s",
			ExternalLabels: ExternalLabels{Monitor: "onion"},
		},
	}

	job := func(name string, port int) ScrapeConfig {
		return ScrapeConfig{
			JobName:        name,
			ScrapeInterval: "5s",
			StaticConfigs:  []StaticConfig{{Targets: []string{fmt.Sprintf("%s:%d", c.Host, port)}}},
		}
	}

	promCfg.ScrapeConfigs = append(promCfg.ScrapeConfigs, job("registry", c.Registry.Port))
	for _, id := range relayIDs {
		promCfg.ScrapeConfigs = append(promCfg.ScrapeConfigs, job(fmt.Sprintf("relay-%d", id), c.RelayAddress(id)))
	}
	for _, id := range userIDs {
		promCfg.ScrapeConfigs = append(promCfg.ScrapeConfigs, job(fmt.Sprintf("user-%d", id), c.UserAddress(id)))
	}
	return promCfg
}

// WritePrometheusConfig writes PrometheusConfig as YAML to path.
func (c *Config) WritePrometheusConfig(path string, relayIDs, userIDs []int) error {
	promCfg := c.PrometheusConfig(relayIDs, userIDs)
	data, err := yaml.Marshal(&promCfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal prometheus config")
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to open file for writing")
	}
	defer file.Close()

	if _, err = file.Write(data); err != nil {
		return errors.Wrap(err, "failed to write prometheus config to file")
	}
	if err = file.Sync(); err != nil {
		return errors.Wrap(err, "failed to flush prometheus config to disk")
	}

	slog.Info("prometheus config written to file", "path", path)
	return nil
}
