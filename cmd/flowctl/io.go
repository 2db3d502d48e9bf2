package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/flowops/pkg/flowops"
	"github.com/dukex/flowops/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func readFlowVersion(path string) (*models.FlowVersion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow version %s: %w", path, err)
	}

	var flow models.FlowVersion
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to decode flow version %s: %w", path, err)
	}

	if flow.Steps == nil {
		flow.Steps = make(map[string]*models.Step)
	}

	flowops.UpdateValidity(&flow)

	return &flow, nil
}

// readOperations accepts a single envelope or an array of envelopes.
func readOperations(path string) ([]models.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read operations %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)

	if !bytes.HasPrefix(data, []byte("[")) {
		op, err := models.DecodeOperation(data)
		if err != nil {
			return nil, err
		}

		return []models.Operation{op}, nil
	}

	var envelopes []models.OperationEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("failed to decode operations %s: %w", path, err)
	}

	ops := make([]models.Operation, 0, len(envelopes))
	for i, envelope := range envelopes {
		op, err := envelope.Decode()
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}

		ops = append(ops, op)
	}

	return ops, nil
}

func writeJSON(command *cli.Command, path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	return writeOutput(command, path, append(data, '\n'))
}

// writeOutput writes to path, or to the command's writer when path is empty.
func writeOutput(command *cli.Command, path string, data []byte) error {
	if path == "" {
		_, err := command.Root().Writer.Write(data)

		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
