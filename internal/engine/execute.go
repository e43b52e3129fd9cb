package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lexcr-io/lexcr/internal/lexapi"
	"github.com/lexcr-io/lexcr/internal/logging"
	"github.com/lexcr-io/lexcr/internal/resource"
)

// DefaultParallelism bounds concurrent execution of independent branches.
const DefaultParallelism = 5

// FallbackIntentName is the intent Lex creates automatically with every
// locale. It has a fixed identifier, can only be updated, and is never
// deleted.
const (
	FallbackIntentName = "FallbackIntent"
	FallbackIntentID   = "FALLBCKINT"
)

// NodeStatus is the per-node outcome of an execution pass.
type NodeStatus string

const (
	StatusApplied NodeStatus = "applied"
	StatusFailed  NodeStatus = "failed"
	StatusBlocked NodeStatus = "blocked"
)

// NodeResult records one operation's outcome.
type NodeResult struct {
	Address string
	Action  Action
	Status  NodeStatus
	Err     error
}

// Result summarizes an execution pass. BotID is populated once the root
// create returns (or from the known physical identifier on update/delete).
// BuildLocales lists the locales whose subresources changed and therefore
// need a rebuild.
type Result struct {
	BotID        string
	Nodes        map[string]*NodeResult
	BuildLocales []string
}

// Err aggregates all node failures, or returns nil when every operation
// applied cleanly.
func (r *Result) Err() error {
	var errs []error
	for _, n := range r.Nodes {
		if n.Status == StatusFailed {
			errs = append(errs, fmt.Errorf("%s %s: %w", n.Action, n.Address, n.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	blocked := 0
	for _, n := range r.Nodes {
		if n.Status == StatusBlocked {
			blocked++
		}
	}
	if blocked > 0 {
		errs = append(errs, fmt.Errorf("%d dependent operation(s) blocked", blocked))
	}
	return errors.Join(errs...)
}

// Executor issues the remote calls for an operation plan, honoring the
// dependency order and collecting per-node results. Independent branches run
// concurrently on a bounded pool; a failed node blocks its dependents but
// unrelated branches continue.
type Executor struct {
	API          lexapi.API
	Parallelism  int
	PollInterval time.Duration
	Retry        *RetryPolicy
	Resolver     *Resolver

	st *execState
}

// NewExecutor wires an executor with the default pool size and a remote
// fallback lookup for references that predate this pass.
func NewExecutor(api lexapi.API) *Executor {
	e := &Executor{
		API:          api,
		Parallelism:  DefaultParallelism,
		PollInterval: lexapi.DefaultPollInterval,
		Retry:        DefaultRetryPolicy(),
	}
	e.Resolver = &Resolver{Lookup: e.remoteLookup}
	return e
}

type execState struct {
	botID string
	mu    sync.Mutex // guards identifier assignment: single writer per node
}

// Execute runs the plan. botID is the known physical identifier, or "" when
// the plan itself creates the bot. The desired tree is consulted for slot
// priority ordering; it may be nil for delete-only plans.
func (e *Executor) Execute(ctx context.Context, plan *Plan, desired *resource.Tree, botID string) (*Result, error) {
	res := &Result{
		BotID: botID,
		Nodes: make(map[string]*NodeResult, len(plan.Ops)),
	}
	if len(plan.Ops) == 0 {
		return res, nil
	}

	st := &execState{botID: botID}
	e.st = st
	e.runParallel(ctx, plan.Ops, st, res)
	res.BotID = st.botID

	// Slot priorities follow declaration order and are settled through the
	// owning intent once its slots exist.
	if desired != nil && res.Err() == nil {
		if err := e.applySlotPriorities(ctx, st, desired, res); err != nil {
			return res, err
		}
	}

	res.BuildLocales = buildLocales(plan, res)
	return res, res.Err()
}

// runParallel executes operations concurrently respecting DependsOn edges,
// with a semaphore bounding in-flight remote work.
func (e *Executor) runParallel(ctx context.Context, ops []*Operation, st *execState, res *Result) {
	parallelism := e.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	opSet := make(map[string]*Operation, len(ops))
	for _, op := range ops {
		opSet[op.Address] = op
	}
	deps := make(map[string][]string, len(ops))
	for _, op := range ops {
		for _, d := range op.DependsOn {
			if _, ok := opSet[d]; ok {
				deps[op.Address] = append(deps[op.Address], d)
			}
		}
	}

	var (
		mu        sync.Mutex
		cond      = sync.NewCond(&mu)
		completed = make(map[string]bool, len(ops))
		failed    = make(map[string]bool, len(ops))
	)
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for _, op := range ops {
		wg.Add(1)
		go func(op *Operation) {
			defer wg.Done()

			mu.Lock()
			for {
				ready, depFailed := true, false
				for _, d := range deps[op.Address] {
					if failed[d] {
						depFailed = true
						break
					}
					if !completed[d] {
						ready = false
						break
					}
				}
				if depFailed {
					failed[op.Address] = true
					res.Nodes[op.Address] = &NodeResult{
						Address: op.Address,
						Action:  op.Action,
						Status:  StatusBlocked,
					}
					mu.Unlock()
					cond.Broadcast()
					return
				}
				if ready {
					break
				}
				cond.Wait()
			}
			mu.Unlock()

			sem <- struct{}{}
			err := ctx.Err()
			if err == nil {
				err = e.applyOp(ctx, op, st)
			}
			<-sem

			mu.Lock()
			nr := &NodeResult{Address: op.Address, Action: op.Action, Status: StatusApplied}
			if err != nil {
				nr.Status = StatusFailed
				nr.Err = err
				failed[op.Address] = true
				logging.Error("operation failed", "address", op.Address, "action", op.Action.String(), "error", err)
			} else {
				completed[op.Address] = true
			}
			res.Nodes[op.Address] = nr
			mu.Unlock()
			cond.Broadcast()
		}(op)
	}

	wg.Wait()
}

func (e *Executor) applyOp(ctx context.Context, op *Operation, st *execState) error {
	node := op.Node
	if node == nil {
		node = op.Prior
	}
	logging.Debug("applying", "address", op.Address, "action", op.Action.String())

	switch node.Kind {
	case resource.KindBot:
		return e.applyBot(ctx, op, st)
	case resource.KindLocale:
		return e.applyLocale(ctx, op, st)
	case resource.KindSlotType:
		return e.applySlotType(ctx, op, st)
	case resource.KindIntent:
		return e.applyIntent(ctx, op, st)
	case resource.KindSlot:
		return e.applySlot(ctx, op, st)
	default:
		return fmt.Errorf("unknown node kind %v", node.Kind)
	}
}

func (e *Executor) applyBot(ctx context.Context, op *Operation, st *execState) error {
	switch op.Action {
	case ActionCreate:
		var id string
		err := e.retryCall(ctx, func() error {
			var callErr error
			id, callErr = e.API.CreateBot(ctx, op.Node.Attributes)
			return callErr
		})
		if err != nil {
			return err
		}
		st.mu.Lock()
		st.botID = id
		op.Node.ID = id
		st.mu.Unlock()
		return e.waitStatus(ctx,
			func(ctx context.Context) (string, error) { return e.API.BotStatus(ctx, id) },
			[]string{lexapi.StatusCreating},
			[]string{lexapi.StatusAvailable})

	case ActionUpdate:
		botID := e.botID(st)
		if err := e.retryCall(ctx, func() error { return e.API.UpdateBot(ctx, botID, op.Node.Attributes) }); err != nil {
			return err
		}
		st.mu.Lock()
		op.Node.ID = botID
		st.mu.Unlock()
		return e.waitStatus(ctx,
			func(ctx context.Context) (string, error) { return e.API.BotStatus(ctx, botID) },
			[]string{lexapi.StatusCreating},
			[]string{lexapi.StatusAvailable})

	case ActionDelete:
		// Root deletion is hoisted out of tree reconciliation and handled by
		// the delete entrypoint, which also owns the identifier fallback.
		return fmt.Errorf("bot delete is not a tree operation")
	}
	return nil
}

func (e *Executor) applyLocale(ctx context.Context, op *Operation, st *execState) error {
	botID := e.botID(st)
	switch op.Action {
	case ActionCreate:
		if err := e.retryCall(ctx, func() error { return e.API.CreateLocale(ctx, botID, op.Node.Attributes) }); err != nil {
			return err
		}
		op.Node.ID = op.Node.Name
		return e.waitStatus(ctx,
			func(ctx context.Context) (string, error) { return e.API.LocaleStatus(ctx, botID, op.Node.Name) },
			[]string{lexapi.StatusCreating},
			[]string{lexapi.StatusNotBuilt})

	case ActionUpdate:
		op.Node.ID = op.Node.Name
		return e.retryCall(ctx, func() error {
			return e.API.UpdateLocale(ctx, botID, op.Node.Name, op.Node.Attributes)
		})

	case ActionDelete:
		err := e.retryCall(ctx, func() error { return e.API.DeleteLocale(ctx, botID, op.Prior.Name) })
		if err != nil {
			if lexapi.IsPreconditionFailed(err) || lexapi.IsNotFound(err) {
				logging.Info("locale already absent", "bot_id", botID, "locale_id", op.Prior.Name)
				return nil
			}
			return err
		}
		return e.waitDeleted(ctx, func(ctx context.Context) (string, error) {
			return e.API.LocaleStatus(ctx, botID, op.Prior.Name)
		})
	}
	return nil
}

func (e *Executor) applySlotType(ctx context.Context, op *Operation, st *execState) error {
	botID := e.botID(st)
	switch op.Action {
	case ActionCreate:
		localeID := op.Node.Locale().Name
		id, err := e.createWithRetry(ctx, func() (string, error) {
			return e.API.CreateSlotType(ctx, botID, localeID, op.Node.Attributes)
		})
		if err != nil {
			return err
		}
		st.mu.Lock()
		op.Node.ID = id
		st.mu.Unlock()
		return nil

	case ActionUpdate:
		localeID := op.Node.Locale().Name
		id, err := e.API.SlotTypeIDByName(ctx, botID, localeID, op.Node.Name)
		if err != nil {
			return err
		}
		if id == "" {
			return &ReferenceNotFoundError{Kind: resource.KindSlotType, Name: op.Node.Name, Scope: op.Node.Locale().Address()}
		}
		st.mu.Lock()
		op.Node.ID = id
		st.mu.Unlock()
		return e.retryCall(ctx, func() error {
			return e.API.UpdateSlotType(ctx, botID, localeID, id, op.Node.Attributes)
		})

	case ActionDelete:
		localeID := op.Prior.Locale().Name
		id, err := e.API.SlotTypeIDByName(ctx, botID, localeID, op.Prior.Name)
		if err != nil {
			return err
		}
		if id == "" {
			logging.Warn("slot type already absent", "name", op.Prior.Name, "locale_id", localeID)
			return nil
		}
		return e.retryCall(ctx, func() error { return e.API.DeleteSlotType(ctx, botID, localeID, id) })
	}
	return nil
}

func (e *Executor) applyIntent(ctx context.Context, op *Operation, st *execState) error {
	botID := e.botID(st)
	switch op.Action {
	case ActionCreate:
		localeID := op.Node.Locale().Name
		// The fallback intent already exists with a fixed identifier; a
		// declaration for it is proxied as an update.
		if op.Node.Name == FallbackIntentName {
			st.mu.Lock()
			op.Node.ID = FallbackIntentID
			st.mu.Unlock()
			attrs := withFallbackSignature(op.Node.Attributes)
			return e.retryCall(ctx, func() error {
				return e.API.UpdateIntent(ctx, botID, localeID, FallbackIntentID, attrs, nil)
			})
		}
		id, err := e.createWithRetry(ctx, func() (string, error) {
			return e.API.CreateIntent(ctx, botID, localeID, op.Node.Attributes)
		})
		if err != nil {
			return err
		}
		st.mu.Lock()
		op.Node.ID = id
		st.mu.Unlock()
		return nil

	case ActionUpdate:
		localeID := op.Node.Locale().Name
		if op.Node.Name == FallbackIntentName {
			st.mu.Lock()
			op.Node.ID = FallbackIntentID
			st.mu.Unlock()
			attrs := withFallbackSignature(op.Node.Attributes)
			return e.retryCall(ctx, func() error {
				return e.API.UpdateIntent(ctx, botID, localeID, FallbackIntentID, attrs, nil)
			})
		}
		id, err := e.API.IntentIDByName(ctx, botID, localeID, op.Node.Name)
		if err != nil {
			return err
		}
		if id == "" {
			return &ReferenceNotFoundError{Kind: resource.KindIntent, Name: op.Node.Name, Scope: op.Node.Locale().Address()}
		}
		st.mu.Lock()
		op.Node.ID = id
		st.mu.Unlock()
		return e.retryCall(ctx, func() error {
			return e.API.UpdateIntent(ctx, botID, localeID, id, op.Node.Attributes, nil)
		})

	case ActionDelete:
		localeID := op.Prior.Locale().Name
		if op.Prior.Name == FallbackIntentName {
			logging.Warn("attempted to delete fallback intent - ignoring")
			return nil
		}
		id, err := e.API.IntentIDByName(ctx, botID, localeID, op.Prior.Name)
		if err != nil {
			return err
		}
		if id == "" {
			logging.Warn("intent already absent", "name", op.Prior.Name, "locale_id", localeID)
			return nil
		}
		return e.retryCall(ctx, func() error { return e.API.DeleteIntent(ctx, botID, localeID, id) })
	}
	return nil
}

func (e *Executor) applySlot(ctx context.Context, op *Operation, st *execState) error {
	botID := e.botID(st)
	node := op.Node
	if node == nil {
		node = op.Prior
	}
	localeID := node.Locale().Name
	intent := node.Parent()

	intentID, err := e.intentID(ctx, botID, localeID, intent)
	if err != nil {
		return err
	}

	switch op.Action {
	case ActionCreate:
		typeID, err := e.Resolver.SlotTypeID(ctx, op.Node)
		if err != nil {
			return err
		}
		id, err := e.createWithRetry(ctx, func() (string, error) {
			return e.API.CreateSlot(ctx, botID, localeID, intentID, typeID, op.Node.Attributes)
		})
		if err != nil {
			return err
		}
		st.mu.Lock()
		op.Node.ID = id
		st.mu.Unlock()
		return nil

	case ActionUpdate:
		typeID, err := e.Resolver.SlotTypeID(ctx, op.Node)
		if err != nil {
			return err
		}
		id, err := e.API.SlotIDByName(ctx, botID, localeID, intentID, op.Node.Name)
		if err != nil {
			return err
		}
		if id == "" {
			return &ReferenceNotFoundError{Kind: resource.KindSlot, Name: op.Node.Name, Scope: intent.Address()}
		}
		st.mu.Lock()
		op.Node.ID = id
		st.mu.Unlock()
		return e.retryCall(ctx, func() error {
			return e.API.UpdateSlot(ctx, botID, localeID, intentID, id, typeID, op.Node.Attributes)
		})

	case ActionDelete:
		id, err := e.API.SlotIDByName(ctx, botID, localeID, intentID, op.Prior.Name)
		if err != nil {
			return err
		}
		if id == "" {
			logging.Warn("slot already absent", "name", op.Prior.Name, "intent", intent.Name)
			return nil
		}
		return e.retryCall(ctx, func() error { return e.API.DeleteSlot(ctx, botID, localeID, intentID, id) })
	}
	return nil
}

// applySlotPriorities updates every intent whose slot set was touched this
// pass with priorities matching the declared slot order.
func (e *Executor) applySlotPriorities(ctx context.Context, st *execState, desired *resource.Tree, res *Result) error {
	botID := e.botID(st)
	var errs []error
	desired.Root.Walk(func(intent *resource.Node) {
		if intent.Kind != resource.KindIntent || intent.Name == FallbackIntentName {
			return
		}
		slots := intent.ChildrenOfKind(resource.KindSlot)
		if len(slots) == 0 || !subtreeTouched(intent, res) {
			return
		}
		localeID := intent.Locale().Name
		intentID, err := e.intentID(ctx, botID, localeID, intent)
		if err != nil {
			errs = append(errs, err)
			return
		}

		priorities := make([]lexapi.SlotPriority, 0, len(slots))
		for i, slot := range slots {
			id := slot.ID
			if id == "" {
				var err error
				id, err = e.API.SlotIDByName(ctx, botID, localeID, intentID, slot.Name)
				if err != nil {
					errs = append(errs, err)
					return
				}
				if id == "" {
					logging.Warn("slot id not found for priority ordering", "name", slot.Name)
					continue
				}
			}
			priorities = append(priorities, lexapi.SlotPriority{Priority: i + 1, SlotID: id})
		}

		err = e.retryCall(ctx, func() error {
			return e.API.UpdateIntent(ctx, botID, localeID, intentID, intent.Attributes, priorities)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("setting slot priorities for %s: %w", intent.Address(), err))
		}
	})
	return errors.Join(errs...)
}

// subtreeTouched reports whether the intent or any of its slots had a
// non-NoOp operation applied.
func subtreeTouched(intent *resource.Node, res *Result) bool {
	if nr, ok := res.Nodes[intent.Address()]; ok && nr.Status == StatusApplied {
		return true
	}
	for _, slot := range intent.ChildrenOfKind(resource.KindSlot) {
		if nr, ok := res.Nodes[slot.Address()]; ok && nr.Status == StatusApplied {
			return true
		}
	}
	return false
}

// buildLocales returns the locale ids that still exist and saw changes, in
// plan order. These are the locales the build driver must rebuild.
func buildLocales(plan *Plan, res *Result) []string {
	seen := make(map[string]bool)
	var out []string
	for _, op := range plan.Ops {
		node := op.Node
		if node == nil {
			// A deleted subtree has no locale left to build; deletions inside
			// a surviving locale are reflected through that locale's other
			// operations or its own update.
			node = op.Prior
			if node.Kind != resource.KindLocale && node.Locale() != nil {
				if nr, ok := res.Nodes[op.Address]; ok && nr.Status == StatusApplied {
					loc := node.Locale().Name
					if !seen[loc] && !deletedInPlan(plan, node.Locale()) {
						seen[loc] = true
						out = append(out, loc)
					}
				}
			}
			continue
		}
		loc := node.Locale()
		if loc == nil {
			continue
		}
		if nr, ok := res.Nodes[op.Address]; ok && nr.Status == StatusApplied {
			if !seen[loc.Name] {
				seen[loc.Name] = true
				out = append(out, loc.Name)
			}
		}
	}
	return out
}

func deletedInPlan(plan *Plan, loc *resource.Node) bool {
	for _, op := range plan.Ops {
		if op.Action == ActionDelete && op.Prior == loc {
			return true
		}
	}
	return false
}

// intentID returns the intent's identifier, falling back to a by-name
// lookup for intents untouched in this pass. Slots of one intent may run
// concurrently, so the cached id is read and written under the state lock.
func (e *Executor) intentID(ctx context.Context, botID, localeID string, intent *resource.Node) (string, error) {
	if intent.Name == FallbackIntentName {
		return FallbackIntentID, nil
	}
	e.st.mu.Lock()
	id := intent.ID
	e.st.mu.Unlock()
	if id != "" {
		return id, nil
	}
	id, err := e.API.IntentIDByName(ctx, botID, localeID, intent.Name)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", &ReferenceNotFoundError{Kind: resource.KindIntent, Name: intent.Name, Scope: localeID}
	}
	e.st.mu.Lock()
	intent.ID = id
	e.st.mu.Unlock()
	return id, nil
}

// remoteLookup backs the resolver for references created in prior passes.
func (e *Executor) remoteLookup(ctx context.Context, kind resource.Kind, name string, scope *resource.Node) (string, error) {
	if kind != resource.KindSlotType || e.st == nil {
		return "", nil
	}
	botID := e.botID(e.st)
	if botID == "" {
		return "", nil
	}
	return e.API.SlotTypeIDByName(ctx, botID, scope.Name, name)
}

func (e *Executor) botID(st *execState) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.botID
}

func (e *Executor) retryCall(ctx context.Context, fn func() error) error {
	return RetryWithBackoff(ctx, e.Retry, fn, lexapi.IsThrottling)
}

func (e *Executor) createWithRetry(ctx context.Context, fn func() (string, error)) (string, error) {
	var id string
	err := e.retryCall(ctx, func() error {
		var callErr error
		id, callErr = fn()
		return callErr
	})
	return id, err
}

func (e *Executor) waitStatus(ctx context.Context, fn lexapi.StatusFunc, wait, target []string) error {
	return lexapi.WaitForStatus(ctx, fn, wait, target, e.PollInterval, lexapi.DefaultMaxPolls)
}

// waitDeleted polls until the describe call reports the resource gone.
func (e *Executor) waitDeleted(ctx context.Context, fn lexapi.StatusFunc) error {
	err := lexapi.WaitForStatus(ctx, fn,
		[]string{lexapi.StatusDeleting},
		[]string{},
		e.PollInterval, lexapi.DefaultMaxPolls)
	if err == nil || lexapi.IsNotFound(err) {
		return nil
	}
	return err
}

// withFallbackSignature pins the parent intent signature the service
// requires when updating the automatically created fallback intent.
func withFallbackSignature(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs)+1)
	out["parentIntentSignature"] = "AMAZON.FallbackIntent"
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
