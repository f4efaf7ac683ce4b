package script

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/necroturtle/pkg/logger"
)

// Extensions はスクリプトとして扱う拡張子（大文字小文字は区別しない）
var Extensions = []string{".ritual", ".necro", ".js", ".txt"}

// Script はスクリプトファイルを表す
type Script struct {
	Name    string // ファイル名
	Content string // UTF-8に変換され、改行がLFに揃えられた内容
	Size    int64  // 元のバイト数
}

// Loader はファイルシステムからスクリプトを読み込む
// fsys には os.DirFS でも embed.FS でも渡せる
type Loader struct {
	fsys fs.FS
	log  *slog.Logger
}

// NewLoader Loaderを作成
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{
		fsys: fsys,
		log:  logger.GetLogger(),
	}
}

// LoadFile OSのパスから1ファイルを読み込む
func LoadFile(p string) (*Script, error) {
	return NewLoader(os.DirFS(filepath.Dir(p))).Load(filepath.Base(p))
}

// Load スクリプトを読み込む
// 完全一致で見つからない場合は大文字小文字を無視して探す
func (l *Loader) Load(name string) (*Script, error) {
	actual, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(l.fsys, actual)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding of %s: %w", actual, err)
	}

	l.log.Debug("Script loaded", "name", actual, "size", len(data))
	return &Script{
		Name:    path.Base(actual),
		Content: content,
		Size:    int64(len(data)),
	}, nil
}

// List スクリプト拡張子を持つファイルを再帰的に列挙する（ソート済み）
func (l *Loader) List() ([]string, error) {
	var names []string
	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsScript(p) {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// IsScript 拡張子でスクリプトかどうかを判定
func IsScript(name string) bool {
	ext := path.Ext(name)
	for _, e := range Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// resolve 大文字小文字を無視してファイルを探す
func (l *Loader) resolve(name string) (string, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if _, err := fs.Stat(l.fsys, name); err == nil {
		return name, nil
	}

	dir, base := path.Split(name)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(l.fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), base) {
			return path.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("file not found: %s (searched in %s)", base, dir)
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode バイト列をUTF-8文字列に変換する
//   - BOM付き（UTF-8 / UTF-16LE / UTF-16BE）はBOMに従う
//   - BOMなしで正しいUTF-8ならそのまま
//   - それ以外はShift-JISとして扱う
//
// 改行コードはLFに揃える（行番号のトレースが崩れないように）
func Decode(data []byte) (string, error) {
	var out []byte
	switch {
	case bytes.HasPrefix(data, bomUTF8), bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		decoded, err := decodeWith(data, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		if err != nil {
			return "", fmt.Errorf("failed to decode unicode text: %w", err)
		}
		out = decoded
	case utf8.Valid(data):
		out = data
	default:
		decoded, err := decodeWith(data, japanese.ShiftJIS.NewDecoder())
		if err != nil {
			return "", fmt.Errorf("failed to decode Shift-JIS: %w", err)
		}
		out = decoded
	}

	text := strings.ReplaceAll(string(out), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

func decodeWith(data []byte, t transform.Transformer) ([]byte, error) {
	return io.ReadAll(transform.NewReader(bytes.NewReader(data), t))
}
