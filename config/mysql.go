package config

import "fmt"

type MySQL struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	Charset  string `json:"charset" yaml:"charset"`
}

func (m *MySQL) Dsn() string {
	port, charset := m.Port, m.Charset
	if port == 0 {
		port = 3306
	}
	if charset == "" {
		charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		m.Username, m.Password, m.Host, port, m.Database, charset)
}
