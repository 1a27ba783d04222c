package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/repository"
	"github.com/jmoiron/sqlx"
)

const (
	MethodRules         = "rules"
	MethodHistory       = "history"
	MethodKeywords      = "keywords"
	MethodDialedNumber  = "dialed_number"
	MethodNumberPattern = "number_pattern"
	MethodDefault       = "default"
)

// KeywordRoute sends content containing any of Words to Department.
type KeywordRoute struct {
	Department string
	Words      []string
}

type RuleResolver interface {
	Resolve(ctx context.Context, from, to string, commType domain.CommunicationType) (*RuleMatch, error)
}

type Classification struct {
	DepartmentID string
	UserHint     string
	Method       string
}

// Classifier picks the department of an inbound event: rules first, then the
// caller's history, then content keywords, then the dialed line's department,
// then words in the dialed number, then the default department.
type Classifier struct {
	db                sqlx.ExtContext
	rules             RuleResolver
	comms             repository.CommunicationRepository
	phones            repository.PhoneRepository
	keywords          []KeywordRoute
	numberPatterns    []KeywordRoute
	defaultDepartment string
}

func NewClassifier(
	db sqlx.ExtContext,
	rules RuleResolver,
	comms repository.CommunicationRepository,
	phones repository.PhoneRepository,
	keywords []KeywordRoute,
	defaultDepartment string,
) *Classifier {
	return &Classifier{
		db:                db,
		rules:             rules,
		comms:             comms,
		phones:            phones,
		keywords:          keywords,
		defaultDepartment: defaultDepartment,
	}
}

// WithNumberPatterns sets the table matched against unregistered or
// unassigned dialed numbers, e.g. "+1-555-SALES-01" containing "SALES".
func (c *Classifier) WithNumberPatterns(patterns []KeywordRoute) *Classifier {
	c.numberPatterns = patterns
	return c
}

func (c *Classifier) Classify(ctx context.Context, from, to string, commType domain.CommunicationType, content string) (*Classification, error) {
	const op = "internal.service.classifier.Classify"

	match, err := c.rules.Resolve(ctx, from, to, commType)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve rules: %w", op, err)
	}

	if match != nil {
		return &Classification{DepartmentID: match.DepartmentID, UserHint: deref(match.UserID), Method: MethodRules}, nil
	}

	history, err := c.comms.FindHistory(ctx, c.db, from)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to look up history: %w", op, err)
	}

	if history != nil {
		return &Classification{DepartmentID: history.DepartmentID, UserHint: deref(history.UserID), Method: MethodHistory}, nil
	}

	if dept, ok := matchRoutes(c.keywords, content); ok {
		return &Classification{DepartmentID: dept, Method: MethodKeywords}, nil
	}

	dialed, err := c.phones.GetPhone(ctx, c.db, to)
	switch {
	case err == nil:
		if dialed.DepartmentID != nil && *dialed.DepartmentID != domain.GeneralDepartment {
			return &Classification{DepartmentID: *dialed.DepartmentID, Method: MethodDialedNumber}, nil
		}
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return nil, fmt.Errorf("%s: failed to look up dialed number: %w", op, err)
	}

	if dept, ok := matchRoutes(c.numberPatterns, to); ok {
		return &Classification{DepartmentID: dept, Method: MethodNumberPattern}, nil
	}

	return &Classification{DepartmentID: c.defaultDepartment, Method: MethodDefault}, nil
}

// matchRoutes returns the department of the first route with a word
// contained in text, ignoring case.
func matchRoutes(routes []KeywordRoute, text string) (string, bool) {
	text = strings.ToLower(text)
	if text == "" {
		return "", false
	}

	for _, route := range routes {
		for _, word := range route.Words {
			if word != "" && strings.Contains(text, strings.ToLower(word)) {
				return route.Department, true
			}
		}
	}

	return "", false
}
