package game

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed quests/*.yaml
var builtinFS embed.FS

// ObjectiveType は目標の種類
type ObjectiveType string

const (
	ObjectiveCollect ObjectiveType = "collect"
	ObjectiveBanish  ObjectiveType = "banish"
	ObjectiveReach   ObjectiveType = "reach"
)

// Objective はクエストの目標
type Objective struct {
	Type        ObjectiveType `yaml:"type"`
	Target      string        `yaml:"target"`
	Count       int           `yaml:"count"`
	Description string        `yaml:"description"`
	Current     int           `yaml:"-"`
	Completed   bool          `yaml:"-"`
}

// Quest はクエスト定義
type Quest struct {
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	Description    string      `yaml:"description"`
	Objectives     []Objective `yaml:"objectives"`
	Entities       []Entity    `yaml:"entities"`
	Start          Point       `yaml:"start"`
	StartAngle     float64     `yaml:"startAngle"`
	SuccessMessage string      `yaml:"successMessage"`
	Hints          []string    `yaml:"hints"`
}

// clone はエンティティと目標を複製したクエストを返す
func (q Quest) clone() *Quest {
	c := q
	c.Objectives = append([]Objective(nil), q.Objectives...)
	c.Entities = append([]Entity(nil), q.Entities...)
	c.Hints = append([]string(nil), q.Hints...)
	return &c
}

// Validate はクエスト定義の整合性を検査する
func (q *Quest) Validate() error {
	if q.ID == "" {
		return errors.New("quest id is required")
	}
	if len(q.Objectives) == 0 {
		return fmt.Errorf("quest %s: at least one objective is required", q.ID)
	}
	for i, o := range q.Objectives {
		switch o.Type {
		case ObjectiveCollect, ObjectiveBanish, ObjectiveReach:
		default:
			return fmt.Errorf("quest %s: objective %d: unknown type %q", q.ID, i, o.Type)
		}
		if o.Count <= 0 {
			return fmt.Errorf("quest %s: objective %d: count must be positive", q.ID, i)
		}
	}
	seen := make(map[string]bool)
	for i, e := range q.Entities {
		switch e.Type {
		case EntitySoul, EntityDemon, EntityBuilding, EntityObstacle:
		default:
			return fmt.Errorf("quest %s: entity %d: unknown type %q", q.ID, i, e.Type)
		}
		if e.Radius <= 0 {
			return fmt.Errorf("quest %s: entity %s: radius must be positive", q.ID, e.ID)
		}
		if e.ID != "" && seen[e.ID] {
			return fmt.Errorf("quest %s: duplicate entity id %s", q.ID, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// LoadQuests は YAML を読み込む。"---" で区切った複数のクエストを受け付ける
func LoadQuests(r io.Reader) ([]Quest, error) {
	dec := yaml.NewDecoder(r)
	var quests []Quest
	for {
		var q Quest
		err := dec.Decode(&q)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse quest: %w", err)
		}
		for i := range q.Entities {
			q.Entities[i].Active = true
		}
		if err := q.Validate(); err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	if len(quests) == 0 {
		return nil, errors.New("no quests found")
	}
	return quests, nil
}

// ParseQuests はバイト列から LoadQuests を行う
func ParseQuests(data []byte) ([]Quest, error) {
	return LoadQuests(bytes.NewReader(data))
}

// BuiltinQuests は組み込みのクエストを ID 順で返す
func BuiltinQuests() ([]Quest, error) {
	paths, err := fs.Glob(builtinFS, "quests/*.yaml")
	if err != nil {
		return nil, err
	}
	var quests []Quest
	for _, path := range paths {
		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return nil, err
		}
		qs, err := ParseQuests(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		quests = append(quests, qs...)
	}
	sort.Slice(quests, func(i, j int) bool { return quests[i].ID < quests[j].ID })
	return quests, nil
}

// FindQuest は ID でクエストを探す
func FindQuest(quests []Quest, id string) (Quest, bool) {
	for _, q := range quests {
		if q.ID == id {
			return q, true
		}
	}
	return Quest{}, false
}
