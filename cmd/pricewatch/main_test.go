package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCollectItems(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "items.txt")
	if err := os.WriteFile(file, []byte("# watch\n111\nhttps://item.gmarket.co.kr/Item?goodscode=222\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		flags   []string
		args    []string
		file    string
		config  []string
		want    []string
		wantErr bool
	}{
		{"位置参数优先", []string{"2"}, []string{"1"}, file, []string{"9"}, []string{"1", "2"}, false},
		{"商品页地址", nil, []string{"https://item.gmarket.co.kr/Item?goodscode=1920684660"}, "", nil, []string{"1920684660"}, false},
		{"其次是文件", nil, nil, file, []string{"9"}, []string{"111", "222"}, false},
		{"最后是配置文件", nil, nil, "", []string{"9", "9"}, []string{"9", "9"}, false},
		{"都没有", nil, nil, "", nil, []string{}, false},
		{"无效编号", []string{"abc"}, nil, "", nil, nil, true},
		{"文件不存在", nil, nil, filepath.Join(dir, "missing.txt"), nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectItems(tt.flags, tt.args, tt.file, tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("collectItems() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("collectItems() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "validate-config", "version"} {
		if !names[want] {
			t.Errorf("缺少子命令 %s", want)
		}
	}

	for _, flag := range []string{"config", "log-level", "header", "mode", "headless", "attempts", "output"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("缺少全局参数 --%s", flag)
		}
	}
	for _, flag := range []string{"items", "items-file", "dry-run"} {
		if runCmd.Flags().Lookup(flag) == nil || rootCmd.Flags().Lookup(flag) == nil {
			t.Errorf("缺少运行参数 --%s", flag)
		}
	}
}
