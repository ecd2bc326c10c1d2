package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrTournamentFull     = errors.New("tournament is full")
	ErrAlreadyRegistered  = errors.New("team is already registered")
	ErrRequirementsNotMet = errors.New("team does not meet the tournament requirements")
	ErrNotEnoughTeams     = errors.New("at least two registrations are required")
	ErrBracketGenerated   = errors.New("bracket already generated")
	ErrNotGroupPlayoff    = errors.New("tournament has no group stage")
	ErrGroupsIncomplete   = errors.New("group stage is not finished")
	ErrPlayoffGenerated   = errors.New("playoff already generated")
	ErrMatchLocked        = errors.New("match is completed or its veto has started")
	ErrNotCaptain         = errors.New("only the team captain can do this")
)
