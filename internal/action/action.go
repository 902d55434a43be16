// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package action wraps state-changing operations with the gateway's full
// security treatment: context building, role and policy authorization,
// replay protection, input validation and audit logging. Handlers only run
// after every check passes, and every invocation leaves exactly one audit
// event unless the request was cancelled first.
package action

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/wmitrus/gateward/internal/audit"
	"github.com/wmitrus/gateward/internal/authz"
	"github.com/wmitrus/gateward/internal/metrics"
	"github.com/wmitrus/gateward/internal/secctx"
)

// Status tags an action result.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusValidationError Status = "validation_error"
	StatusUnauthorized    Status = "unauthorized"
	StatusError           Status = "error"
)

// Result is the JSON-stable outcome of a secure action invocation.
type Result[Out any] struct {
	// Status tags the outcome.
	Status Status `json:"status"`

	// Data is the handler's output on success.
	Data Out `json:"data,omitempty"`

	// Errors holds field-level validation failures.
	Errors map[string]string `json:"errors,omitempty"`

	// Error describes a non-validation failure.
	Error string `json:"error,omitempty"`
}

// Request carries one invocation's input and request-derived context.
type Request[In any] struct {
	// Input is the action's payload, validated before the handler runs.
	Input In

	// ReplayToken is the optional anti-replay token minted with the form.
	ReplayToken string

	// Meta seeds the security context build.
	Meta secctx.RequestMeta

	// ResourceID identifies the specific resource acted on, if any.
	ResourceID string

	// ResourceAttributes feed condition evaluation (e.g. owner_id).
	ResourceAttributes map[string]string
}

// Handler is the application logic run once every check has passed.
type Handler[In, Out any] func(ctx context.Context, input In, sc *secctx.SecurityContext) (Out, error)

// Config declares one secure action.
type Config[In, Out any] struct {
	// Name identifies the action in audit events and metrics.
	Name string

	// RequiredRole is the coarse role gate.
	RequiredRole authz.Role

	// Resource and Verb form the policy action token "<resource>:<verb>".
	Resource string
	Verb     string

	// Handler runs after authorization and validation.
	Handler Handler[In, Out]
}

// Deps are the shared collaborators every secure action uses.
type Deps struct {
	Builder    *secctx.Builder
	Authorizer *authz.Authorizer
	Audit      *audit.Logger
	Validate   *validator.Validate
	Replay     *ReplayVerifier

	// RequireReplayToken rejects invocations without a token. Off by
	// default; the permissive default is an intentional relaxation, and
	// hardened deployments flip it in configuration.
	RequireReplayToken bool
}

// Invoker is a fully wrapped action ready to call from application code.
type Invoker[In, Out any] func(ctx context.Context, req Request[In]) Result[Out]

// New wraps a handler into a secure action.
func New[In, Out any](deps *Deps, cfg Config[In, Out]) Invoker[In, Out] {
	actionToken := authz.Action(cfg.Resource + ":" + cfg.Verb)

	return func(ctx context.Context, req Request[In]) Result[Out] {
		sc, err := deps.Builder.BuildWithTimeout(ctx, req.Meta)
		if err != nil {
			// Cancellation: the request is gone, no side effects.
			return Result[Out]{Status: StatusError, Error: err.Error()}
		}

		actor := actorFor(sc)
		source := audit.Source{IPAddress: sc.IP, UserAgent: sc.UserAgent}

		finish := func(result Result[Out], auditStatus, detail string) Result[Out] {
			metrics.SecureActions.WithLabelValues(cfg.Name, string(result.Status)).Inc()
			if ctx.Err() == nil {
				deps.Audit.LogActionOutcome(ctx, actor, source, cfg.Name, auditStatus, detail)
			}
			return result
		}

		// Coarse role gate, then the policy engine.
		current := authz.Role(sc.EffectiveRole())
		if err := authz.EnsureRequiredRole(current, cfg.RequiredRole); err != nil {
			return finish(
				Result[Out]{Status: StatusUnauthorized, Error: err.Error()},
				"unauthorized", err.Error())
		}

		check := &authz.Context{
			Tenant: authz.TenantRef{
				TenantID: sc.User.TenantID,
				UserID:   sc.User.ID,
			},
			Subject: authz.SubjectRef{
				ID:         sc.User.ID,
				Attributes: map[string]string{"role": sc.User.Role},
			},
			Resource: authz.ResourceRef{
				Type:       cfg.Resource,
				ID:         req.ResourceID,
				Attributes: req.ResourceAttributes,
			},
			Action:      actionToken,
			Environment: &authz.EnvironmentRef{IP: sc.IP},
		}
		if err := deps.Authorizer.Authorize(ctx, check, "not permitted to "+string(actionToken)); err != nil {
			if authz.IsDenial(err) {
				return finish(
					Result[Out]{Status: StatusUnauthorized, Error: err.Error()},
					"unauthorized", err.Error())
			}
			return finish(
				Result[Out]{Status: StatusError, Error: err.Error()},
				"error", err.Error())
		}

		if err := checkReplay(deps, req.ReplayToken); err != nil {
			auditStatus := "rejected"
			var expired *ActionExpiredError
			if errors.As(err, &expired) {
				auditStatus = "expired"
			}
			return finish(
				Result[Out]{Status: StatusError, Error: err.Error()},
				auditStatus, err.Error())
		}

		if deps.Validate != nil {
			if err := deps.Validate.Struct(req.Input); err != nil {
				var fieldErrs validator.ValidationErrors
				if errors.As(err, &fieldErrs) {
					return finish(
						Result[Out]{Status: StatusValidationError, Errors: fieldErrorMap(fieldErrs)},
						"validation_error", "input validation failed")
				}
				return finish(
					Result[Out]{Status: StatusError, Error: err.Error()},
					"error", err.Error())
			}
		}

		out, err := cfg.Handler(ctx, req.Input, sc)
		if err != nil {
			return finish(
				Result[Out]{Status: StatusError, Error: err.Error()},
				"error", err.Error())
		}

		return finish(
			Result[Out]{Status: StatusSuccess, Data: out},
			"success", "action completed")
	}
}

// checkReplay enforces the replay token policy. A nil return passes.
func checkReplay(deps *Deps, token string) error {
	if token == "" {
		if deps.RequireReplayToken {
			return errors.New("replay token required")
		}
		return nil
	}
	if deps.Replay == nil {
		return nil
	}

	if err := deps.Replay.Verify(token); err != nil {
		metrics.ReplayRejections.Inc()
		return err
	}
	return nil
}

// fieldErrorMap flattens validator errors into field -> constraint.
func fieldErrorMap(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fields[fe.Field()] = msg
	}
	return fields
}

// actorFor maps a security context to an audit actor.
func actorFor(sc *secctx.SecurityContext) audit.Actor {
	if !sc.IsAuthenticated() {
		return audit.GuestActor()
	}
	return audit.ActorFromUser(sc.User.ID, sc.User.Role, sc.User.TenantID)
}
