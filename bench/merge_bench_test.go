// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"fmt"
	"testing"

	"github.com/sam-fredrickson/suffixmerge"
)

const (
	numUsers    = 100
	numServices = 50
	basePort    = 8000
)

// generateLargeBase creates a large base configuration with multiple sections.
// Users and services are keyed by name, since arrays are replaced rather than merged.
func generateLargeBase() map[string]any {
	users := make(map[string]any, numUsers)
	for i := 0; i < numUsers; i++ {
		users[fmt.Sprintf("user%d", i)] = map[string]any{
			"id":    i,
			"email": fmt.Sprintf("user%d@example.com", i),
			"role":  "member",
			"settings": map[string]any{
				"notifications": true,
				"theme":         "light",
				"language":      "en",
			},
			"logins": []any{"2024-01-01"},
		}
	}

	services := make(map[string]any, numServices)
	for i := 0; i < numServices; i++ {
		services[fmt.Sprintf("service%d", i)] = map[string]any{
			"port": basePort + i,
			"config": map[string]any{
				"timeout":     30,
				"retries":     3,
				"compression": true,
			},
			"hosts": []any{"a.internal", "b.internal"},
		}
	}

	return map[string]any{
		"version":  "1.0",
		"users":    users,
		"services": services,
		"global": map[string]any{
			"debug":   false,
			"logging": "info",
			"region":  "us-east-1",
		},
	}
}

// generateOverlays creates overlays that touch different parts of the config
// using every key modifier.
func generateOverlays(count int) []map[string]any {
	overlays := make([]map[string]any, count)
	for i := 0; i < count; i++ {
		overlays[i] = map[string]any{
			"users": map[string]any{
				fmt.Sprintf("user%d", (i*2)%numUsers): map[string]any{
					"role": "admin",
				},
				fmt.Sprintf("user%d", (i*2+1)%numUsers): map[string]any{
					"settings!":      map[string]any{"theme": "dark"},
					"logins-history": fmt.Sprintf("2024-02-%02d", i%28+1),
				},
			},
			"services": map[string]any{
				fmt.Sprintf("service%d", i%numServices): map[string]any{
					"config": map[string]any{
						"timeout":  60,
						"retries--": nil,
					},
					"hosts": []any{"c.internal"},
				},
			},
		}
	}
	return overlays
}

func toValues(b *testing.B, docs ...map[string]any) []suffixmerge.Value {
	b.Helper()
	values := make([]suffixmerge.Value, len(docs))
	for i, doc := range docs {
		v, err := suffixmerge.FromAny(doc)
		if err != nil {
			b.Fatal(err)
		}
		values[i] = v
	}
	return values
}

func benchmarkDocs(b *testing.B, overlays int) {
	docs := toValues(b, append([]map[string]any{generateLargeBase()}, generateOverlays(overlays)...)...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = suffixmerge.Merge(docs...)
	}
}

func BenchmarkMerge_Small(b *testing.B) {
	docs := toValues(b,
		map[string]any{
			"users": map[string]any{
				"alice": map[string]any{"id": 1},
				"bob":   map[string]any{"id": 2},
			},
		},
		map[string]any{
			"users": map[string]any{
				"alice": map[string]any{"role": "admin"},
			},
		},
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = suffixmerge.Merge(docs...)
	}
}

func BenchmarkMerge_Medium(b *testing.B) {
	benchmarkDocs(b, 5)
}

func BenchmarkMerge_Large(b *testing.B) {
	benchmarkDocs(b, 20)
}

func BenchmarkMerge_ManySmallOverlays(b *testing.B) {
	benchmarkDocs(b, 50)
}

func BenchmarkMerge_DeepNesting(b *testing.B) {
	docs := toValues(b,
		map[string]any{
			"level1": map[string]any{
				"level2": map[string]any{
					"level3": map[string]any{
						"level4": map[string]any{
							"items": []any{1, 2},
							"value": "a",
						},
					},
				},
			},
		},
		map[string]any{
			"level1": map[string]any{
				"level2": map[string]any{
					"level3": map[string]any{
						"level4": map[string]any{
							"items-history": 3,
							"value!":        "updated",
						},
					},
				},
			},
		},
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = suffixmerge.Merge(docs...)
	}
}

func BenchmarkMerge_AppendHistory(b *testing.B) {
	overlays := make([]map[string]any, 100)
	for i := range overlays {
		overlays[i] = map[string]any{"events-history": map[string]any{"seq": i}}
	}
	docs := toValues(b, append([]map[string]any{{"events": []any{}}}, overlays...)...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = suffixmerge.Merge(docs...)
	}
}

func BenchmarkMerge_ScalarOverridesOnly(b *testing.B) {
	docs := toValues(b,
		map[string]any{
			"a": 1,
			"b": 2,
			"c": 3,
			"d": 4,
			"e": 5,
			"f": map[string]any{
				"g": 6,
				"h": 7,
				"i": 8,
			},
		},
		map[string]any{
			"a":  10,
			"c!": 30,
			"f": map[string]any{
				"h": 70,
			},
		},
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = suffixmerge.Merge(docs...)
	}
}

func BenchmarkMergeAny_Medium(b *testing.B) {
	overlays := generateOverlays(5)
	docs := make([]any, len(overlays)+1)
	docs[0] = generateLargeBase()
	for i, o := range overlays {
		docs[i+1] = o
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = suffixmerge.MergeAny(docs...)
	}
}

func BenchmarkResolveKey(b *testing.B) {
	keys := []string{"plain", "replace!", "omit--", "append-history"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = suffixmerge.ResolveKey(keys[i%len(keys)])
	}
}
