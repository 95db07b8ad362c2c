package configuration

import (
	"encoding/json"
	"os"
)

type MongoConfig struct {
	Uri                string `json:"uri"`
	Database           string `json:"database"`
	MessagesCollection string `json:"messagesCollection"`
	RoomsCollection    string `json:"roomsCollection"`
	UsersCollection    string `json:"usersCollection"`
	SocketRoute        string `json:"socketRoute"`
}

type RedisConfig struct {
	Url              string `json:"url"`
	KeyExpireSeconds int    `json:"key_expire_seconds"`
}

type ServerConfig struct {
	AppPort    int `json:"app_port"`
	SocketPort int `json:"socket_port"`
}

type AuthConfig struct {
	Secret string `json:"secret"`
}

type ProtocolConfig struct {
	SchemaPath        string `json:"schema_path"`
	StrictStatusOrder bool   `json:"strict_status_order"`
}

type Config struct {
	ChatDatabase MongoConfig    `json:"mongo"`
	Redis        RedisConfig    `json:"redis"`
	Server       ServerConfig   `json:"server"`
	Auth         AuthConfig     `json:"auth"`
	Protocol     ProtocolConfig `json:"protocol"`
}

func LoadConfig(config_path string) (*Config, error) {
	file, err := os.ReadFile(config_path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
