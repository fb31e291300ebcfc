package service

import (
	"fmt"
	"strings"
)

// Error is a domain error with a machine-readable code. Sentinel
// instances below are matched with errors.Is; call sites wrap them with
// fmt.Errorf("...: %w", ...) to add context.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrCodeNotFound            = &Error{Code: "CODE_NOT_FOUND", Message: "referral code not found or not redeemable"}
	ErrCodeGenerationExhausted = &Error{Code: "CODE_GENERATION_EXHAUSTED", Message: "could not generate a unique referral code"}
	ErrRateExceedsCeiling      = &Error{Code: "RATE_EXCEEDS_CEILING", Message: "commission rate exceeds the affiliate's ceiling"}
	ErrUsageLimitReached       = &Error{Code: "USAGE_LIMIT_REACHED", Message: "referral code usage limit reached"}
	ErrProductMismatch         = &Error{Code: "PRODUCT_MISMATCH", Message: "referral code is scoped to a different product"}
	ErrUnsafeFormula           = &Error{Code: "UNSAFE_FORMULA", Message: "calculated field formula contains disallowed characters"}
	ErrWebhookInactive         = &Error{Code: "WEBHOOK_INACTIVE", Message: "webhook is not active"}
	ErrEventNotSubscribed      = &Error{Code: "EVENT_NOT_SUBSCRIBED", Message: "webhook is not subscribed to this event type"}
	ErrDeliveryTransport       = &Error{Code: "DELIVERY_TRANSPORT_ERROR", Message: "webhook delivery transport failure"}
)

// ValidationError aggregates every failing conversion validation rule.
// It is returned whole so callers can surface all messages at once.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("conversion rejected by validation rules: %s", strings.Join(e.Messages, "; "))
}

// Code implements the same machine-readable contract as Error.
func (e *ValidationError) Code() string {
	return "VALIDATION_RULE_FAILED"
}
