// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/suffixmerge"
	"github.com/sam-fredrickson/suffixmerge/codec"
)

// KRM annotation constants.
const (
	// AnnotationBase is the base prefix for all suffixmerge annotations.
	AnnotationBase = "config.suffixmerge.io/"

	// AnnotationID is a correlation key grouping ConfigMaps for a single merge operation.
	AnnotationID = AnnotationBase + "id"

	// AnnotationOrder defines the merge order for ConfigMaps with the same ID.
	// Lower numbers are merged first. The ConfigMap with order=0 is the base.
	AnnotationOrder = AnnotationBase + "order"

	// AnnotationFinalName specifies the desired metadata.name of the final merged ConfigMap.
	// Must be present on the base ConfigMap (order=0).
	AnnotationFinalName = AnnotationBase + "final-name"

	// AnnotationStrict, when "true" on the base ConfigMap, fails the merge if
	// any document in the group has several keys for one canonical key.
	AnnotationStrict = AnnotationBase + "strict"
)

// TypeMeta describes an individual object in a ResourceList.
type TypeMeta struct {
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`
	Kind       string `yaml:"kind" json:"kind"`
}

// ObjectMeta is metadata that all persisted resources must have.
type ObjectMeta struct {
	Name        string            `yaml:"name,omitempty" json:"name,omitempty"`
	Namespace   string            `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// ConfigMap represents a Kubernetes ConfigMap resource.
type ConfigMap struct {
	TypeMeta   `yaml:",inline" json:",inline"`
	ObjectMeta `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Data       map[string]string `yaml:"data,omitempty" json:"data,omitempty"`
}

// ResourceList is the input/output format for KRM functions.
// See: https://github.com/kubernetes-sigs/kustomize/blob/master/cmd/config/docs/api-conventions/functions-spec.md
type ResourceList struct {
	APIVersion string           `yaml:"apiVersion" json:"apiVersion"`
	Kind       string           `yaml:"kind" json:"kind"`
	Items      []map[string]any `yaml:"items" json:"items"`
}

// layerGroup is a set of ConfigMaps sharing one ID, merged into a single ConfigMap.
type layerGroup struct {
	id     string
	layers []*layer
	strict bool
}

// layer is one ConfigMap of a group together with its position in the merge.
type layer struct {
	order     int
	configMap ConfigMap
	finalName string // only meaningful on the base (order=0)
	strict    bool
}

// Run executes the KRM plugin mode, reading a ResourceList from in and writing to out.
func Run(in io.Reader, out io.Writer) error {
	rl, err := readResourceList(in)
	if err != nil {
		return fmt.Errorf("failed to read ResourceList: %w", err)
	}

	groups, passthrough, err := groupConfigMaps(rl)
	if err != nil {
		return fmt.Errorf("failed to group ConfigMaps: %w", err)
	}

	merged := make([]map[string]any, 0, len(groups))
	for _, group := range groups {
		cm, err := mergeGroup(group)
		if err != nil {
			return fmt.Errorf("failed to merge ConfigMap group %q: %w", group.id, err)
		}
		merged = append(merged, cm)
	}

	outputRL := ResourceList{
		APIVersion: "config.kubernetes.io/v1",
		Kind:       "ResourceList",
		Items:      append(passthrough, merged...),
	}
	if err := writeResourceList(out, outputRL); err != nil {
		return fmt.Errorf("failed to write ResourceList: %w", err)
	}
	return nil
}

func readResourceList(r io.Reader) (*ResourceList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var rl ResourceList
	if err := yaml.Unmarshal(data, &rl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ResourceList: %w", err)
	}
	return &rl, nil
}

func writeResourceList(w io.Writer, rl ResourceList) error {
	data, err := yaml.Marshal(rl)
	if err != nil {
		return fmt.Errorf("failed to marshal ResourceList: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// groupConfigMaps separates annotated ConfigMaps from passthrough resources.
// Groups are returned sorted by ID so output is deterministic.
func groupConfigMaps(rl *ResourceList) ([]*layerGroup, []map[string]any, error) {
	byID := make(map[string]*layerGroup)
	var passthrough []map[string]any

	for _, item := range rl.Items {
		cm, isConfigMap, err := parseConfigMap(item)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse resource: %w", err)
		}
		if !isConfigMap {
			passthrough = append(passthrough, item)
			continue
		}

		id := cm.Annotations[AnnotationID]
		if id == "" {
			passthrough = append(passthrough, item)
			continue
		}

		l, err := parseLayer(cm)
		if err != nil {
			return nil, nil, fmt.Errorf("ConfigMap %q: %w", cm.Name, err)
		}
		if byID[id] == nil {
			byID[id] = &layerGroup{id: id}
		}
		byID[id].layers = append(byID[id].layers, l)
	}

	groups := make([]*layerGroup, 0, len(byID))
	for _, group := range byID {
		if err := prepareGroup(group); err != nil {
			return nil, nil, fmt.Errorf("ConfigMap group %q: %w", group.id, err)
		}
		groups = append(groups, group)
	}
	slices.SortFunc(groups, func(a, b *layerGroup) int {
		return strings.Compare(a.id, b.id)
	})
	return groups, passthrough, nil
}

// parseConfigMap attempts to parse a resource item as a ConfigMap.
func parseConfigMap(item map[string]any) (ConfigMap, bool, error) {
	apiVersion, _ := item["apiVersion"].(string)
	kind, _ := item["kind"].(string)
	if kind != "ConfigMap" {
		return ConfigMap{}, false, nil
	}

	data, err := yaml.Marshal(item)
	if err != nil {
		return ConfigMap{}, false, fmt.Errorf("failed to marshal item: %w", err)
	}
	var cm ConfigMap
	if err := yaml.Unmarshal(data, &cm); err != nil {
		return ConfigMap{}, false, fmt.Errorf("failed to unmarshal ConfigMap: %w", err)
	}
	if cm.APIVersion == "" {
		cm.APIVersion = apiVersion
	}
	if cm.Kind == "" {
		cm.Kind = kind
	}
	return cm, true, nil
}

func parseLayer(cm ConfigMap) (*layer, error) {
	orderStr := cm.Annotations[AnnotationOrder]
	if orderStr == "" {
		return nil, fmt.Errorf("missing required annotation %q", AnnotationOrder)
	}
	order, err := strconv.Atoi(orderStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %q annotation: %w", AnnotationOrder, err)
	}

	var strict bool
	if s := cm.Annotations[AnnotationStrict]; s != "" {
		strict, err = strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %q annotation: %w", AnnotationStrict, err)
		}
	}

	return &layer{
		order:     order,
		configMap: cm,
		finalName: cm.Annotations[AnnotationFinalName],
		strict:    strict,
	}, nil
}

// prepareGroup sorts a group by order and validates its base.
func prepareGroup(group *layerGroup) error {
	if len(group.layers) == 0 {
		return errors.New("empty ConfigMap group")
	}
	slices.SortStableFunc(group.layers, func(a, b *layer) int {
		return a.order - b.order
	})

	base := group.layers[0]
	if base.order != 0 {
		return fmt.Errorf("no base ConfigMap with order=0 (lowest order is %d)", base.order)
	}
	if len(group.layers) > 1 && group.layers[1].order == 0 {
		return fmt.Errorf("ConfigMaps %q and %q both have order=0",
			base.configMap.Name, group.layers[1].configMap.Name)
	}
	if base.finalName == "" {
		return fmt.Errorf("base ConfigMap %q missing required annotation %q", base.configMap.Name, AnnotationFinalName)
	}
	group.strict = base.strict
	return nil
}

// mergeGroup merges all ConfigMaps in a group into a single ConfigMap.
func mergeGroup(group *layerGroup) (map[string]any, error) {
	base := group.layers[0]

	var dataKeys []string
	for _, l := range group.layers {
		for key := range l.configMap.Data {
			if !slices.Contains(dataKeys, key) {
				dataKeys = append(dataKeys, key)
			}
		}
	}
	slices.Sort(dataKeys)

	mergedData := make(map[string]string, len(dataKeys))
	for _, dataKey := range dataKeys {
		merged, err := mergeDataKey(group, dataKey)
		if err != nil {
			return nil, fmt.Errorf("failed to merge data key %q: %w", dataKey, err)
		}
		if merged != "" {
			mergedData[dataKey] = merged
		}
	}

	result := ConfigMap{
		TypeMeta: TypeMeta{
			APIVersion: "v1",
			Kind:       "ConfigMap",
		},
		ObjectMeta: ObjectMeta{
			Name:        base.finalName,
			Namespace:   base.configMap.Namespace,
			Annotations: filterAnnotations(base.configMap.Annotations),
			Labels:      base.configMap.Labels,
		},
		Data: mergedData,
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged ConfigMap: %w", err)
	}
	var resultMap map[string]any
	if err := yaml.Unmarshal(data, &resultMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merged ConfigMap: %w", err)
	}
	return resultMap, nil
}

// mergeDataKey merges a single data key across every ConfigMap in a group that
// carries it, in group order.
func mergeDataKey(group *layerGroup, dataKey string) (string, error) {
	var contents []string
	var names []string
	for _, l := range group.layers {
		if value := l.configMap.Data[dataKey]; value != "" {
			contents = append(contents, value)
			names = append(names, l.configMap.Name)
		}
	}

	switch len(contents) {
	case 0:
		return "", nil
	case 1:
		return contents[0], nil
	}

	format := formatOfKey(dataKey)
	docs := make([]suffixmerge.Value, len(contents))
	for i, content := range contents {
		doc, err := codec.Decode(format, []byte(content))
		if err != nil {
			return "", fmt.Errorf("ConfigMap %q (format: %s): %w", names[i], format, err)
		}
		if group.strict {
			if collisions := suffixmerge.FindKeyCollisions(doc); len(collisions) > 0 {
				return "", fmt.Errorf("ConfigMap %q: %w", names[i], &suffixmerge.KeyCollisionError{
					DocIndex:   i,
					Collisions: collisions,
				})
			}
		}
		docs[i] = doc
	}

	merged, err := suffixmerge.Merge(docs...)
	if err != nil {
		var kindErr *suffixmerge.InvalidInputKindError
		if errors.As(err, &kindErr) {
			return "", fmt.Errorf("ConfigMap %q (format: %s): %w", names[kindErr.DocIndex], format, err)
		}
		return "", err
	}

	out, err := codec.Encode(format, merged)
	if err != nil {
		return "", fmt.Errorf("failed to encode result as %s: %w", format, err)
	}
	return string(out), nil
}

// formatOfKey detects the format from a data key name (e.g. "config.json" is
// JSON). Keys without a recognized extension are YAML, as is common in Kubernetes.
func formatOfKey(dataKey string) codec.Format {
	format, err := codec.FormatOf(dataKey)
	if err != nil {
		return codec.YAML
	}
	return format
}

// filterAnnotations removes suffixmerge annotations from a map.
func filterAnnotations(annotations map[string]string) map[string]string {
	filtered := make(map[string]string)
	for key, value := range annotations {
		if !strings.HasPrefix(key, AnnotationBase) {
			filtered[key] = value
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
