package repo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// blocksDirName is the subdirectory of a remote library folder holding
// one JSON file per block
const blocksDirName = "blocks"

const (
	stemMethodFallback = "REQUEST"
	stemNameFallback   = "unnamed"
)

// ReadBlocks lists <dir>/blocks/*.json and parses one block per file,
// stamping each with libraryID. Files that fail to parse are skipped.
// Order follows the directory listing, no ordering is guaranteed
func ReadBlocks(dir, libraryID string) []Block {
	entries, err := os.ReadDir(filepath.Join(dir, blocksDirName))
	if err != nil {
		return nil
	}

	var blocks []Block
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, blocksDirName, entry.Name()))
		if err != nil {
			log.Debugf("reading block file %s: %s", entry.Name(), err)
			continue
		}
		var block Block
		if err := json.Unmarshal(data, &block); err != nil {
			log.Debugf("skipping unparseable block file %s: %s", entry.Name(), err)
			continue
		}
		block.SourceLibraryID = libraryID
		blocks = append(blocks, block)
	}
	return blocks
}

// WriteBlocks fully rewrites the blocks folder of a remote library:
// every file whose stem isn't in the new stem set is deleted, then each
// block is written as pretty JSON to <stem>.json
func WriteBlocks(dir string, blocks []Block) error {
	blocksDir := filepath.Join(dir, blocksDirName)
	if err := os.MkdirAll(blocksDir, 0755); err != nil {
		return err
	}

	stems := filenameStems(blocks)
	keep := map[string]bool{}
	for _, stem := range stems {
		keep[stem] = true
	}

	entries, err := os.ReadDir(blocksDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if !keep[stem] {
			os.Remove(filepath.Join(blocksDir, entry.Name()))
		}
	}

	for _, block := range blocks {
		stem, ok := stems[block.ID]
		if !ok {
			stem = block.ID
		}
		data, err := json.MarshalIndent(block, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(blocksDir, stem+".json"), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// filenameStems maps block ids to collision-free filename stems. Blocks
// sharing a sanitized (method, name) pair sort by id and take the stems
// base, base-2, base-3, ..., which keeps repeated writes idempotent
func filenameStems(blocks []Block) map[string]string {
	type groupKey struct {
		method string
		name   string
	}

	groups := map[groupKey][]Block{}
	for _, block := range blocks {
		method := sanitizeForFilename(strings.ToUpper(strings.TrimSpace(block.Method)), stemMethodFallback)
		name := ""
		if strings.TrimSpace(block.Name) == "" {
			name = sanitizeForFilename(block.ID, stemNameFallback)
		} else {
			name = sanitizeForFilename(strings.TrimSpace(block.Name), stemNameFallback)
		}
		key := groupKey{method: method, name: name}
		groups[key] = append(groups[key], block)
	}

	stems := map[string]string{}
	for key, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		base := key.method + "-" + key.name
		for i, block := range group {
			if i == 0 {
				stems[block.ID] = base
			} else {
				stems[block.ID] = base + "-" + strconv.Itoa(i+1)
			}
		}
	}
	return stems
}

// sanitizeForFilename replaces filesystem-unsafe characters with "_",
// trims whitespace and edge underscores, and collapses underscore runs.
// An empty result falls back to fallback
func sanitizeForFilename(s, fallback string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, s)

	trimmed := strings.Trim(strings.TrimSpace(mapped), "_")

	var b strings.Builder
	prevUnderscore := false
	for _, r := range trimmed {
		if r == '_' && prevUnderscore {
			continue
		}
		prevUnderscore = r == '_'
		b.WriteRune(r)
	}

	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
