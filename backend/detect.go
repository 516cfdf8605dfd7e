package backend

import (
	"sort"
	"sync"
)

// DetectableStore is a Store that can tell whether a data directory already
// holds data in its format.
type DetectableStore interface {
	Store

	// CanDetect checks if this store recognizes the data directory.
	// It must be fast and read-only.
	CanDetect() (bool, error)

	// DetectionInfo returns human-readable information about what was found.
	DetectionInfo() string
}

// DetectableConstructor opens a DetectableStore rooted at dataDir.
type DetectableConstructor func(dataDir string) (DetectableStore, error)

// DetectionResult holds the result of detection for a single store.
type DetectionResult struct {
	Name      string // Store name (e.g., "file", "sqlite")
	Available bool   // Whether the store recognized the directory
	Info      string // Human-readable detection info
	Priority  int    // Lower number = higher priority (0 = highest)
	Store     DetectableStore
}

type detectableRegistration struct {
	constructor DetectableConstructor
	priority    int
}

var (
	detectableMu            sync.RWMutex
	detectableRegistrations = make(map[string]detectableRegistration)
)

// RegisterDetectable registers a detectable store constructor with the default priority.
// Stores call this from their init() function.
func RegisterDetectable(name string, constructor DetectableConstructor) {
	RegisterDetectableWithPriority(name, constructor, 100)
}

// RegisterDetectableWithPriority registers a detectable store constructor with a priority.
// Lower priority numbers are preferred (file=10, sqlite=100).
func RegisterDetectableWithPriority(name string, constructor DetectableConstructor, priority int) {
	detectableMu.Lock()
	defer detectableMu.Unlock()
	detectableRegistrations[name] = detectableRegistration{
		constructor: constructor,
		priority:    priority,
	}
}

// DetectableNames returns the registered store names in priority order.
func DetectableNames() []string {
	regs := getDetectableRegistrations()
	names := make([]string, 0, len(regs))
	for name := range regs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := regs[names[i]].priority, regs[names[j]].priority
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return names
}

func getDetectableRegistrations() map[string]detectableRegistration {
	detectableMu.RLock()
	defer detectableMu.RUnlock()

	result := make(map[string]detectableRegistration, len(detectableRegistrations))
	for k, v := range detectableRegistrations {
		result[k] = v
	}
	return result
}

// ClearDetectableConstructors removes all registered constructors.
// This is primarily used for testing.
func ClearDetectableConstructors() {
	detectableMu.Lock()
	defer detectableMu.Unlock()
	detectableRegistrations = make(map[string]detectableRegistration)
}

// DetectStores runs detection for every registered store.
// Results are ordered by priority (lower number = higher priority).
func DetectStores(dataDir string) []DetectionResult {
	var results []DetectionResult

	for name, reg := range getDetectableRegistrations() {
		st, err := reg.constructor(dataDir)
		if err != nil {
			results = append(results, DetectionResult{
				Name:     name,
				Info:     "failed to initialize: " + err.Error(),
				Priority: reg.priority,
			})
			continue
		}

		ok, err := st.CanDetect()
		switch {
		case err != nil:
			_ = st.Close()
			results = append(results, DetectionResult{
				Name:     name,
				Info:     "detection error: " + err.Error(),
				Priority: reg.priority,
			})
		case ok:
			results = append(results, DetectionResult{
				Name:      name,
				Available: true,
				Info:      st.DetectionInfo(),
				Priority:  reg.priority,
				Store:     st,
			})
		default:
			_ = st.Close()
			results = append(results, DetectionResult{
				Name:     name,
				Info:     "no data found",
				Priority: reg.priority,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority < results[j].Priority
		}
		return results[i].Name < results[j].Name
	})
	return results
}

// SelectDetectedStore runs detection and returns the first available store,
// closing the others. It returns nil when nothing matched.
func SelectDetectedStore(dataDir string) (DetectableStore, string) {
	var selected DetectableStore
	var selectedName string

	for _, r := range DetectStores(dataDir) {
		if !r.Available || r.Store == nil {
			continue
		}
		if selected == nil {
			selected = r.Store
			selectedName = r.Name
		} else {
			_ = r.Store.Close()
		}
	}
	return selected, selectedName
}
