package main

import (
	"context"
	"errors"

	"github.com/dukex/flowops/pkg/flowops"
	"github.com/dukex/flowops/pkg/flowstructure"
	"github.com/dukex/flowops/pkg/log"
	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/templates"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

var errInvalidFlow = errors.New("flow version is not valid")

func flowFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "flow",
		Aliases:  []string{"f"},
		Usage:    "Path to a flow version JSON document",
		Required: true,
	}
}

func outFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "Write the result to this file instead of stdout",
	}
}

func templateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "template",
		Aliases:  []string{"t"},
		Usage:    "Path to a template document (.json, .yaml or .yml)",
		Required: true,
	}
}

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Apply one operation, or a JSON array of operations, to a flow version",
		Flags: []cli.Flag{
			flowFlag(),
			&cli.StringFlag{
				Name:     "operation",
				Aliases:  []string{"op"},
				Usage:    "Path to an operation envelope {\"type\": ..., \"request\": ...}",
				Required: true,
			},
			outFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("flowctl")

			flow, err := readFlowVersion(command.String("flow"))
			if err != nil {
				return err
			}

			ops, err := readOperations(command.String("operation"))
			if err != nil {
				return err
			}

			next, err := flowops.ApplyAll(flow, ops...)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Applied operations",
				log.FlowVersionID(next.ID),
				"operations", len(ops),
				"valid", next.Valid)

			return writeJSON(command, command.String("out"), next)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Build a new draft flow version from a template",
		Flags: []cli.Flag{
			templateFlag(),
			&cli.StringFlag{
				Name:  "id",
				Usage: "Flow version ID (generated when empty)",
			},
			&cli.StringFlag{
				Name:  "flow-id",
				Usage: "Flow ID (generated when empty)",
			},
			outFlag(),
		},
		Action: func(_ context.Context, command *cli.Command) error {
			template, err := templates.Load(command.String("template"))
			if err != nil {
				return err
			}

			flow, err := templates.Instantiate(
				valueOrUUID(command.String("id")),
				valueOrUUID(command.String("flow-id")),
				template,
			)
			if err != nil {
				return err
			}

			return writeJSON(command, command.String("out"), flow)
		},
	}
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Print the operations that rebuild a template's steps",
		Flags: []cli.Flag{templateFlag(), outFlag()},
		Action: func(_ context.Context, command *cli.Command) error {
			template, err := templates.Load(command.String("template"))
			if err != nil {
				return err
			}

			ops, err := templates.Plan(template)
			if err != nil {
				return err
			}

			envelopes := make([]models.OperationEnvelope, 0, len(ops))
			for _, op := range ops {
				envelope, err := models.NewOperationEnvelope(op)
				if err != nil {
					return err
				}

				envelopes = append(envelopes, envelope)
			}

			return writeJSON(command, command.String("out"), envelopes)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Convert a flow version into a portable template",
		Flags: []cli.Flag{
			flowFlag(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "Template format (json, yaml)",
				Value: string(templates.FormatJSON),
			},
			outFlag(),
		},
		Action: func(_ context.Context, command *cli.Command) error {
			flow, err := readFlowVersion(command.String("flow"))
			if err != nil {
				return err
			}

			data, err := templates.Encode(flowops.Export(flow), templates.Format(command.String("format")))
			if err != nil {
				return err
			}

			return writeOutput(command, command.String("out"), data)
		},
	}
}

func pathCommand() *cli.Command {
	return &cli.Command{
		Name:  "path",
		Usage: "List the steps whose outputs a step can reference",
		Flags: []cli.Flag{
			flowFlag(),
			&cli.StringFlag{
				Name:     "step",
				Aliases:  []string{"s"},
				Usage:    "Step name",
				Required: true,
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			flow, err := readFlowVersion(command.String("flow"))
			if err != nil {
				return err
			}

			path, err := flowstructure.FindPathToStep(flow, command.String("step"))
			if err != nil {
				return err
			}

			return writeJSON(command, "", path)
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Report the invalid steps of a flow version; fails when any is found",
		Flags: []cli.Flag{flowFlag()},
		Action: func(_ context.Context, command *cli.Command) error {
			flow, err := readFlowVersion(command.String("flow"))
			if err != nil {
				return err
			}

			valid := flowops.ComputeValidity(flow)
			invalid := flowops.InvalidSteps(flow)

			if err := writeJSON(command, "", map[string]any{
				"valid":         valid,
				"trigger_valid": flow.Trigger.Valid,
				"invalid_steps": invalid,
			}); err != nil {
				return err
			}

			if !valid {
				return errInvalidFlow
			}

			return nil
		},
	}
}

func valueOrUUID(value string) string {
	if value != "" {
		return value
	}

	return uuid.NewString()
}
