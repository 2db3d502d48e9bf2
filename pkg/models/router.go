package models

import (
	"errors"
	"fmt"
	"slices"
)

// BranchType distinguishes condition branches from the single fallback branch.
type BranchType string

const (
	BranchTypeCondition BranchType = "CONDITION"
	BranchTypeFallback  BranchType = "FALLBACK"
)

// RouterExecutionType controls whether a router runs the first or every
// matching branch.
type RouterExecutionType string

const (
	RouterExecuteFirstMatch RouterExecutionType = "EXECUTE_FIRST_MATCH"
	RouterExecuteAllMatch   RouterExecutionType = "EXECUTE_ALL_MATCH"
)

// ConditionOperator is the comparison applied between a condition's values.
type ConditionOperator string

const (
	OperatorTextContains            ConditionOperator = "TEXT_CONTAINS"
	OperatorTextDoesNotContain      ConditionOperator = "TEXT_DOES_NOT_CONTAIN"
	OperatorTextExactlyMatches      ConditionOperator = "TEXT_EXACTLY_MATCHES"
	OperatorTextDoesNotExactlyMatch ConditionOperator = "TEXT_DOES_NOT_EXACTLY_MATCH"
	OperatorTextStartsWith          ConditionOperator = "TEXT_STARTS_WITH"
	OperatorTextDoesNotStartWith    ConditionOperator = "TEXT_DOES_NOT_START_WITH"
	OperatorTextEndsWith            ConditionOperator = "TEXT_ENDS_WITH"
	OperatorTextDoesNotEndWith      ConditionOperator = "TEXT_DOES_NOT_END_WITH"
	OperatorNumberIsGreaterThan     ConditionOperator = "NUMBER_IS_GREATER_THAN"
	OperatorNumberIsLessThan        ConditionOperator = "NUMBER_IS_LESS_THAN"
	OperatorNumberIsEqualTo         ConditionOperator = "NUMBER_IS_EQUAL_TO"
	OperatorBooleanIsTrue           ConditionOperator = "BOOLEAN_IS_TRUE"
	OperatorBooleanIsFalse          ConditionOperator = "BOOLEAN_IS_FALSE"
	OperatorExists                  ConditionOperator = "EXISTS"
	OperatorDoesNotExist            ConditionOperator = "DOES_NOT_EXIST"
	OperatorListContains            ConditionOperator = "LIST_CONTAINS"
	OperatorListDoesNotContain      ConditionOperator = "LIST_DOES_NOT_CONTAIN"
	OperatorListIsEmpty             ConditionOperator = "LIST_IS_EMPTY"
	OperatorListIsNotEmpty          ConditionOperator = "LIST_IS_NOT_EMPTY"
	OperatorDateIsBefore            ConditionOperator = "DATE_IS_BEFORE"
	OperatorDateIsEqual             ConditionOperator = "DATE_IS_EQUAL"
	OperatorDateIsAfter             ConditionOperator = "DATE_IS_AFTER"
)

const (
	DefaultFallbackBranchName = "Otherwise"
	defaultBranchNamePrefix   = "Branch"
)

var ErrInvalidBranchLayout = errors.New("router must end with exactly one fallback branch")

// Condition compares FirstValue against SecondValue.
type Condition struct {
	Operator      ConditionOperator `json:"operator"      validate:"required"`
	FirstValue    string            `json:"first_value"`
	SecondValue   string            `json:"second_value"`
	CaseSensitive bool              `json:"case_sensitive"`
}

// Branch is one alternative of a router. Conditions is an OR of AND-groups;
// fallback branches carry none. Steps is the branch's ordered chain.
type Branch struct {
	Name       string        `json:"name"                 validate:"required"`
	Type       BranchType    `json:"type"                 validate:"required,oneof=CONDITION FALLBACK"`
	Conditions [][]Condition `json:"conditions,omitempty" validate:"omitempty,dive,dive"`
	Steps      []string      `json:"steps"`
}

type RouterSettings struct {
	ExecutionType RouterExecutionType `json:"execution_type" validate:"omitempty,oneof=EXECUTE_FIRST_MATCH EXECUTE_ALL_MATCH"`
	Branches      []Branch            `json:"branches"       validate:"dive"`
}

// NewEmptyCondition returns the placeholder condition of a new branch.
func NewEmptyCondition() Condition {
	return Condition{
		Operator:      OperatorTextExactlyMatches,
		FirstValue:    "",
		SecondValue:   "",
		CaseSensitive: false,
	}
}

// NewConditionBranch returns a condition branch; nil conditions become a
// single group holding one empty condition.
func NewConditionBranch(name string, conditions [][]Condition) Branch {
	if len(conditions) == 0 {
		conditions = [][]Condition{{NewEmptyCondition()}}
	}

	return Branch{
		Name:       name,
		Type:       BranchTypeCondition,
		Conditions: conditions,
		Steps:      make([]string, 0),
	}
}

// NewFallbackBranch returns the fallback branch of a router.
func NewFallbackBranch() Branch {
	return Branch{
		Name:  DefaultFallbackBranchName,
		Type:  BranchTypeFallback,
		Steps: make([]string, 0),
	}
}

// DefaultBranchName names a condition branch after its one-based position.
func DefaultBranchName(index int) string {
	return fmt.Sprintf("%s %d", defaultBranchNamePrefix, index+1)
}

// NewRouterSettings returns the layout of a freshly added router.
func NewRouterSettings() *RouterSettings {
	return &RouterSettings{
		ExecutionType: RouterExecuteFirstMatch,
		Branches: []Branch{
			NewConditionBranch(DefaultBranchName(0), nil),
			NewFallbackBranch(),
		},
	}
}

// FallbackIndex returns the index of the fallback branch, always the last one.
func (r *RouterSettings) FallbackIndex() int {
	return len(r.Branches) - 1
}

// IsFallback reports whether index points at the fallback branch.
func (r *RouterSettings) IsFallback(index int) bool {
	return index >= 0 && index < len(r.Branches) && r.Branches[index].Type == BranchTypeFallback
}

// ValidateLayout checks that condition branches come first and exactly one
// fallback branch closes the list.
func (r *RouterSettings) ValidateLayout() error {
	if len(r.Branches) == 0 {
		return ErrInvalidBranchLayout
	}

	for i, branch := range r.Branches {
		isLast := i == len(r.Branches)-1
		if isLast != (branch.Type == BranchTypeFallback) {
			return ErrInvalidBranchLayout
		}
	}

	return nil
}

// Clone returns a deep copy of the router settings.
func (r *RouterSettings) Clone() *RouterSettings {
	clone := &RouterSettings{
		ExecutionType: r.ExecutionType,
		Branches:      make([]Branch, len(r.Branches)),
	}

	for i, branch := range r.Branches {
		clone.Branches[i] = branch.Clone()
	}

	return clone
}

// Clone returns a deep copy of the branch.
func (b Branch) Clone() Branch {
	clone := b
	clone.Steps = slices.Clone(b.Steps)

	if b.Conditions != nil {
		clone.Conditions = make([][]Condition, len(b.Conditions))
		for i, group := range b.Conditions {
			clone.Conditions[i] = slices.Clone(group)
		}
	}

	return clone
}
