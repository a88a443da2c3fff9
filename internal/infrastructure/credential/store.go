// Package credential 管理固定路径上的服务账号凭证文件
package credential

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// Summary 凭证文件的非敏感摘要，用于页面展示
type Summary struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	ClientEmail  string `json:"client_email"`
	PrivateKeyID string `json:"private_key_id"`
}

// Store 凭证文件存储
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore 创建凭证存储；fs 为 nil 时使用操作系统文件系统
func NewStore(fs afero.Fs, path string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, path: filepath.Clean(path)}
}

// Path 凭证文件路径
func (s *Store) Path() string {
	return s.path
}

// Dir 凭证文件所在目录
func (s *Store) Dir() string {
	return filepath.Dir(s.path)
}

// Exists 凭证文件是否存在，唯一的激活开关
func (s *Store) Exists() bool {
	info, err := s.fs.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Read 读取凭证原始字节，不做结构校验
func (s *Store) Read() ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	return data, nil
}

// Write 用 r 的内容原样替换凭证文件
// 先写同目录临时文件再 rename，失败时原文件保持不变
func (s *Store) Write(r io.Reader) error {
	if err := s.fs.MkdirAll(s.Dir(), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.Dir(), ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Chmod(tmpName, 0o600); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("chmod credential: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("replace credential: %w", err)
	}
	return nil
}

// Summary 提取非敏感字段；文件不存在时返回 os.ErrNotExist
func (s *Store) Summary() (*Summary, error) {
	if !s.Exists() {
		return nil, os.ErrNotExist
	}
	data, err := s.Read()
	if err != nil {
		return nil, err
	}
	return Summarize(data), nil
}

// Summarize 从凭证 JSON 中提取摘要，缺失字段为空字符串
func Summarize(data []byte) *Summary {
	fields := gjson.GetManyBytes(bytes.TrimSpace(data), "type", "project_id", "client_email", "private_key_id")
	return &Summary{
		Type:         fields[0].String(),
		ProjectID:    fields[1].String(),
		ClientEmail:  fields[2].String(),
		PrivateKeyID: fields[3].String(),
	}
}
