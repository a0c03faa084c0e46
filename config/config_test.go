package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "test-secret-key-for-unit-testing-2026"},
		Attendance: AttendanceConfig{
			Timezone:       "Asia/Shanghai",
			AnchorPolicy:   AnchorPolicyFirstScheduled,
			MaxBulkEntries: 500,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"nearest_past 策略", func(c *Config) { c.Attendance.AnchorPolicy = AnchorPolicyNearestPast }, false},
		{"缺少密钥", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"密钥过短", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"未知策略", func(c *Config) { c.Attendance.AnchorPolicy = "random" }, true},
		{"非法时区", func(c *Config) { c.Attendance.Timezone = "Mars/Olympus" }, true},
		{"批量上限为 0", func(c *Config) { c.Attendance.MaxBulkEntries = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v，期望出错=%v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CLASSROLL_AUTH_JWT_SECRET", "env-secret-key-0123456789")
	t.Setenv("CLASSROLL_ATTENDANCE_TIMEZONE", "Asia/Shanghai")
	t.Setenv("CLASSROLL_ATTENDANCE_ANCHOR_POLICY", AnchorPolicyNearestPast)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret-key-0123456789" {
		t.Errorf("环境变量未生效: %q", cfg.Auth.JWTSecret)
	}
	if cfg.Attendance.AnchorPolicy != AnchorPolicyNearestPast {
		t.Errorf("期望 nearest_past，实际 %s", cfg.Attendance.AnchorPolicy)
	}
	if cfg.Attendance.BulkLockTTL != 30*time.Second || cfg.Attendance.BulkLockWait != 30*time.Second {
		t.Errorf("期望默认锁 TTL 与等待上限均为 30s，实际 %s / %s", cfg.Attendance.BulkLockTTL, cfg.Attendance.BulkLockWait)
	}
	if cfg.Attendance.MaxBulkEntries != 500 || cfg.Server.Port != 8080 {
		t.Errorf("默认值未生效: %+v", cfg.Attendance)
	}
	if cfg.Attendance.Location().String() != "Asia/Shanghai" {
		t.Errorf("时区解析错误: %s", cfg.Attendance.Location())
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("CLASSROLL_AUTH_JWT_SECRET", "")
	if _, err := Load(""); err == nil {
		t.Error("缺少 jwt_secret 时应报错")
	}
}
