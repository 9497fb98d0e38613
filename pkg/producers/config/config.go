// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"

	"github.com/cobaltcore-dev/smartprom/pkg/producers/smartmetrics"
	"github.com/spf13/viper"
)

type GlobalConfig struct {
	NatsURL     string `mapstructure:"nats_url"`
	NatsSubject string `mapstructure:"nats_subject"`
	NodeName    string `mapstructure:"node_name"`
	InstanceID  string `mapstructure:"instance_id"`
}

// Config is the device inventory file:
//
//	global:
//	  node_name: storage-01
//	devices:
//	  - name: /dev/sda
//	    type: sat
//	  - name: /dev/bus/0
//	    type: megaraid,2
type Config struct {
	Global  GlobalConfig              `mapstructure:"global"`
	Devices []smartmetrics.DeviceSpec `mapstructure:"devices"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	err := v.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	for i, dev := range config.Devices {
		if dev.Name == "*" {
			continue
		}
		if dev.Name == "" || dev.Type == "" {
			return nil, fmt.Errorf("device %d: name and type are required", i)
		}
		if _, err := smartmetrics.ParseDeviceClass(dev.Type); err != nil {
			return nil, fmt.Errorf("device %s: %w", dev.Name, err)
		}
	}

	return &config, nil
}
