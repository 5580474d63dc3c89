package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/adalundhe/termbase/core/glossary"
)

// readDictionary loads a glossary dictionary from a JSON file.
func readDictionary(path string) (*glossary.Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", path, err)
	}
	var dict glossary.Dictionary
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	return &dict, nil
}

// readProposals loads proposals from a JSON file. Both a bare array and a
// {"proposals": [...]} wrapper are accepted.
func readProposals(path string) ([]glossary.Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proposals %s: %w", path, err)
	}
	return parseProposals(data, path)
}

func parseProposals(data []byte, path string) ([]glossary.Proposal, error) {
	var bare []glossary.Proposal
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Proposals []glossary.Proposal `json:"proposals"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse proposals %s: %w", path, err)
	}
	return wrapped.Proposals, nil
}

// writeDictionary writes the dictionary as indented JSON to the path, or
// to stdout when path is empty or "-".
func writeDictionary(path string, dict *glossary.Dictionary) error {
	data, err := json.MarshalIndent(dict, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dictionary: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err := io.Writer(os.Stdout).Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dictionary %s: %w", path, err)
	}
	return nil
}
