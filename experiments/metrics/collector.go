package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type RaidMetric struct {
	BaseID        uint64
	Attackers     int
	Thefts        int // Attackers that found something to take
	EmptyHanded   int // Attackers that found an empty inventory
	Stolen        int // Sum of the stolen-totals table
	Deducted      int // Sum actually removed from the base
	NegativeStock int // Resources left below zero after deduction
	StartTime     time.Time
	Duration      time.Duration
}

type Collector interface {
	Start(baseID uint64)
	AddAttacker()
	AddTheft(amount int)
	AddEmptyHanded()
	AddDeduction(amount, remaining int)
	Finish()
	Complete() RaidMetric
}

type collector struct {
	attackers     atomic.Int32
	thefts        atomic.Int32
	emptyHanded   atomic.Int32
	stolen        atomic.Int64
	deducted      atomic.Int64
	negativeStock atomic.Int32

	mu        sync.Mutex
	baseID    uint64
	startTime time.Time
	last      RaidMetric
}

// NewCollector returns a collector for one raid at a time. Start resets the counters
// and Finish publishes them as the last raid.
func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(baseID uint64) {
	m.mu.Lock()
	m.baseID = baseID
	m.startTime = time.Now()
	m.mu.Unlock()
	m.attackers.Store(0)
	m.thefts.Store(0)
	m.emptyHanded.Store(0)
	m.stolen.Store(0)
	m.deducted.Store(0)
	m.negativeStock.Store(0)
}

func (m *collector) AddAttacker() {
	m.attackers.Add(1)
}

func (m *collector) AddTheft(amount int) {
	m.thefts.Add(1)
	m.stolen.Add(int64(amount))
}

func (m *collector) AddEmptyHanded() {
	m.emptyHanded.Add(1)
}

func (m *collector) AddDeduction(amount, remaining int) {
	m.deducted.Add(int64(amount))
	if remaining < 0 {
		m.negativeStock.Add(1)
	}
}

func (m *collector) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = RaidMetric{
		BaseID:        m.baseID,
		Attackers:     int(m.attackers.Load()),
		Thefts:        int(m.thefts.Load()),
		EmptyHanded:   int(m.emptyHanded.Load()),
		Stolen:        int(m.stolen.Load()),
		Deducted:      int(m.deducted.Load()),
		NegativeStock: int(m.negativeStock.Load()),
		StartTime:     m.startTime,
		Duration:      time.Since(m.startTime),
	}
}

// Complete returns the metric of the last finished raid, zero before the first one.
func (m *collector) Complete() RaidMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(baseID uint64)                {}
func (m *dummyCollector) AddAttacker()                       {}
func (m *dummyCollector) AddTheft(amount int)                {}
func (m *dummyCollector) AddEmptyHanded()                    {}
func (m *dummyCollector) AddDeduction(amount, remaining int) {}
func (m *dummyCollector) Finish()                            {}
func (m *dummyCollector) Complete() RaidMetric               { return RaidMetric{} }
