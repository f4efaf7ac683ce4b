// Package game はクエストとスコアを管理する
//
// エンティティ（魂、悪魔、建物、障害物）は半径による当たり判定を持つ。
// 魂の回収、悪魔の退散、建物への到達で得点が入り、
// すべての目標を達成すると完了ボーナスが加算される。
package game

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/zurustar/necroturtle/pkg/logger"
)

// 得点
const (
	SoulPoints     = 10
	DemonPoints    = 20
	BuildingPoints = 50
	QuestPoints    = 100

	efficiencyBase    = 100
	efficiencyPenalty = 5
)

// Mode はゲームモード
type Mode string

const (
	ModeFreeDraw Mode = "freedraw"
	ModeQuest    Mode = "quest"
)

// EntityType はエンティティの種類
type EntityType string

const (
	EntitySoul     EntityType = "soul"
	EntityDemon    EntityType = "demon"
	EntityBuilding EntityType = "building"
	EntityObstacle EntityType = "obstacle"
)

// Point は座標
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Distance は2点間の距離を返す
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Collides は p が center から radius 以内にあるか判定する
func Collides(p, center Point, radius float64) bool {
	return Distance(p, center) <= radius
}

// Entity はワールド上の物体
type Entity struct {
	ID       string     `yaml:"id"`
	Type     EntityType `yaml:"type"`
	Position Point      `yaml:",inline"`
	Radius   float64    `yaml:"radius"`
	Sprite   string     `yaml:"sprite,omitempty"`
	Active   bool       `yaml:"-"`
}

// State はゲーム状態のコピー
type State struct {
	Mode            Mode
	Quest           *Quest
	Score           int
	SoulsCollected  int
	DemonsBanished  int
	QuestsCompleted int
	CommandsUsed    int
	Entities        []Entity
}

// Manager はゲーム状態を保持する。ビューアから並行に読まれるので mutex で保護する
type Manager struct {
	mode     Mode
	quest    *Quest
	original []Entity
	entities []Entity

	score           int
	soulsCollected  int
	demonsBanished  int
	questsCompleted int
	commandsUsed    int
	questDone       bool

	log *slog.Logger
	mu  sync.RWMutex
}

// NewManager はフリードローモードの Manager を作成する
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{mode: ModeFreeDraw, log: log}
}

// State は現在の状態のコピーを返す
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := State{
		Mode:            m.mode,
		Score:           m.score,
		SoulsCollected:  m.soulsCollected,
		DemonsBanished:  m.demonsBanished,
		QuestsCompleted: m.questsCompleted,
		CommandsUsed:    m.commandsUsed,
		Entities:        append([]Entity(nil), m.entities...),
	}
	if m.quest != nil {
		s.Quest = m.quest.clone()
	}
	return s
}

// SetMode はモードを切り替える。フリードローではクエストとエンティティを破棄する
func (m *Manager) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	if mode == ModeFreeDraw {
		m.quest = nil
		m.entities = nil
		m.original = nil
	}
}

// LoadQuest はクエストを開始する。q は複製して保持する
func (m *Manager) LoadQuest(q Quest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = ModeQuest
	m.quest = q.clone()
	for i := range m.quest.Objectives {
		m.quest.Objectives[i].Current = 0
		m.quest.Objectives[i].Completed = false
	}
	m.original = activeCopy(q.Entities)
	m.entities = activeCopy(q.Entities)
	m.commandsUsed = 0
	m.questDone = false
	m.log.Info("Quest loaded", "id", q.ID, "entities", len(q.Entities))
}

func activeCopy(entities []Entity) []Entity {
	out := make([]Entity, len(entities))
	for i, e := range entities {
		e.Active = true
		out[i] = e
	}
	return out
}

// IncrementCommands はコマンド使用回数を1増やす
func (m *Manager) IncrementCommands() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandsUsed++
}

// CollectSoulAt は p にある魂を回収する
func (m *Manager) CollectSoulAt(p Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.findAt(p, EntitySoul)
	if e == nil {
		return false
	}
	e.Active = false
	m.soulsCollected++
	m.score += SoulPoints
	m.updateObjectives(ObjectiveCollect, "soul")
	return true
}

// BanishDemonAt は p にいる悪魔を退散させる
func (m *Manager) BanishDemonAt(p Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.findAt(p, EntityDemon)
	if e == nil {
		return false
	}
	e.Active = false
	m.demonsBanished++
	m.score += DemonPoints
	m.updateObjectives(ObjectiveBanish, "demon")
	return true
}

// CheckReachedBuilding は p が建物に到達しているか判定し、到達していれば得点する
func (m *Manager) CheckReachedBuilding(p Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findAt(p, EntityBuilding) == nil {
		return false
	}
	m.score += BuildingPoints
	m.updateObjectives(ObjectiveReach, "graveyard")
	return true
}

func (m *Manager) findAt(p Point, t EntityType) *Entity {
	for i := range m.entities {
		e := &m.entities[i]
		if e.Type == t && e.Active && Collides(p, e.Position, e.Radius) {
			return e
		}
	}
	return nil
}

func (m *Manager) updateObjectives(t ObjectiveType, target string) {
	if m.quest == nil {
		return
	}
	for i := range m.quest.Objectives {
		o := &m.quest.Objectives[i]
		if o.Type == t && o.Target == target && !o.Completed {
			o.Current++
			if o.Current >= o.Count {
				o.Completed = true
			}
		}
	}
	m.checkQuestCompletion()
}

// checkQuestCompletion は完了ボーナスをクエストごとに1回だけ加算する
func (m *Manager) checkQuestCompletion() {
	if m.questDone {
		return
	}
	for _, o := range m.quest.Objectives {
		if !o.Completed {
			return
		}
	}
	m.questDone = true
	m.questsCompleted++

	souls := 0
	for _, e := range m.quest.Entities {
		if e.Type == EntitySoul {
			souls++
		}
	}
	efficiency := Efficiency(m.commandsUsed, souls)
	m.score += QuestPoints + efficiency

	m.log.Info(m.quest.SuccessMessage,
		"commands", m.commandsUsed,
		"efficiency", efficiency,
		"score", m.score)
}

// Efficiency は効率ボーナスを返す
// 最適手数は魂1つにつき2手（haunt と collectSoul）
func Efficiency(commandsUsed, souls int) int {
	optimal := souls * 2
	return max(0, efficiencyBase-(commandsUsed-optimal)*efficiencyPenalty)
}

// QuestComplete はクエストのすべての目標を達成したか返す
func (m *Manager) QuestComplete() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.questDone
}

// QuestStatus はクエストの進捗を文字列で返す
func (m *Manager) QuestStatus() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.quest == nil {
		return "No active quest"
	}
	lines := []string{"Quest: " + m.quest.Name}
	for _, o := range m.quest.Objectives {
		mark := "○"
		if o.Completed {
			mark = "✓"
		}
		lines = append(lines, fmt.Sprintf("%s %s (%d/%d)", mark, o.Description, o.Current, o.Count))
	}
	return strings.Join(lines, "\n")
}

// Entities はエンティティのコピーを返す
func (m *Manager) Entities() []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entity(nil), m.entities...)
}

// ActiveEntities は指定した種類の有効なエンティティを返す
func (m *Manager) ActiveEntities(t EntityType) []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entity
	for _, e := range m.entities {
		if e.Type == t && e.Active {
			out = append(out, e)
		}
	}
	return out
}

// Reset は得点と進捗を消し、エンティティを初期状態に戻す。モードとクエストは維持する
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities = activeCopy(m.original)
	m.score = 0
	m.soulsCollected = 0
	m.demonsBanished = 0
	m.questsCompleted = 0
	m.commandsUsed = 0
	m.questDone = false
	if m.quest != nil {
		for i := range m.quest.Objectives {
			m.quest.Objectives[i].Current = 0
			m.quest.Objectives[i].Completed = false
		}
	}
}
