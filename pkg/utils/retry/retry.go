package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Action defines the prototype of action function, function as a value
type Action func(attempt uint) error

// Model defines the schema, contains all the attributes need for retry
type Model struct {
	retry    uint
	waitTime time.Duration
}

type unrecoverable struct {
	err error
}

func (u unrecoverable) Error() string { return u.err.Error() }

func (u unrecoverable) Unwrap() error { return u.err }

// Stop marks err as final, Try returns it without further attempts
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return unrecoverable{err: err}
}

// Times is used to define the total number of attempts
// it will run if the instance of model is not present before
func Times(retry uint) *Model {
	model := Model{}
	return model.Times(retry)
}

// Times is used to define the total number of attempts
// it will run if the instance of model is already present
func (model *Model) Times(retry uint) *Model {
	model.retry = retry
	return model
}

// Wait is used to define the wait duration between two attempts
// it will run if the instance of model is not present before
func Wait(waitTime time.Duration) *Model {
	model := Model{}
	return model.Wait(waitTime)
}

// Wait is used to define the wait duration between two attempts
// it will run if the instance of model is already present
func (model *Model) Wait(waitTime time.Duration) *Model {
	model.waitTime = waitTime
	return model
}

// Try is used to run a action with retries and some delay between the attempts
func (model Model) Try(action Action) error {
	return model.TryWithContext(context.Background(), action)
}

// TryWithContext runs the action at least once and at most model.retry times.
// The wait between attempts is interrupted when ctx is done.
func (model Model) TryWithContext(ctx context.Context, action Action) error {
	if action == nil {
		return fmt.Errorf("no action specified")
	}
	attempts := model.retry
	if attempts == 0 {
		attempts = 1
	}

	var err error
	for attempt := uint(0); attempt < attempts; attempt++ {
		if err = action(attempt); err == nil {
			return nil
		}
		var stop unrecoverable
		if errors.As(err, &stop) {
			return stop.err
		}
		if attempt+1 == attempts {
			break
		}
		if model.waitTime > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(model.waitTime):
			}
		} else if ctx.Err() != nil {
			return err
		}
	}
	return err
}
