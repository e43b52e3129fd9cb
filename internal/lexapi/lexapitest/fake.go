// Package lexapitest provides an in-memory scriptable implementation of the
// lexapi.API interface for tests.
package lexapitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2/types"

	"github.com/lexcr-io/lexcr/internal/lexapi"
)

// Bot is the fake's record of a created bot.
type Bot struct {
	ID      string
	Name    string
	Attrs   map[string]any
	Status  string
	Locales map[string]*Locale
}

// Locale is a bot locale with its subresources keyed by id.
type Locale struct {
	Attrs     map[string]any
	Status    string
	SlotTypes map[string]*SlotType
	Intents   map[string]*Intent

	// buildPolls is consumed one status per LocaleStatus call after a
	// build is triggered; empty means Built immediately.
	buildPolls []string
}

type SlotType struct {
	ID    string
	Name  string
	Attrs map[string]any
}

type Intent struct {
	ID         string
	Name       string
	Attrs      map[string]any
	Priorities []lexapi.SlotPriority
	Slots      map[string]*Slot
}

type Slot struct {
	ID     string
	Name   string
	TypeID string
	Attrs  map[string]any
}

type Alias struct {
	ID     string
	Attrs  map[string]any
	Status string
}

// Fake implements lexapi.API in memory. Every method appends a short call
// record to Calls; scripted errors are consumed per method name with
// FailWith. Zero value is not usable, use New.
type Fake struct {
	mu sync.Mutex

	Bots     map[string]*Bot
	Aliases  map[string]*Alias
	Versions map[string]string // version -> status

	Calls   []string
	nextID  int
	nextVer int

	failures map[string][]error
}

func New() *Fake {
	return &Fake{
		Bots:     make(map[string]*Bot),
		Aliases:  make(map[string]*Alias),
		Versions: make(map[string]string),
		failures: make(map[string][]error),
	}
}

// FailWith scripts errors for the named method; each call consumes one until
// the queue is empty, after which the method behaves normally.
func (f *Fake) FailWith(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = append(f.failures[method], errs...)
}

// Throttle is a ready-made transient capacity error.
func Throttle() error {
	return &types.ThrottlingException{Message: strptr("rate exceeded")}
}

// NotFound is a ready-made resource-not-found error.
func NotFound() error {
	return &types.ResourceNotFoundException{Message: strptr("no such resource")}
}

func strptr(s string) *string { return &s }

// ScriptBuildPolls sets the status sequence LocaleStatus returns after the
// locale's build is triggered; once drained the status stays at the last
// entry.
func (f *Fake) ScriptBuildPolls(botID, localeID string, statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if loc := f.locale(botID, localeID); loc != nil {
		loc.buildPolls = statuses
	}
}

// CallCount returns how many recorded calls start with the given prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *Fake) record(method string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := method
	for _, a := range args {
		call += fmt.Sprintf(" %v", a)
	}
	f.Calls = append(f.Calls, call)
	if q := f.failures[method]; len(q) > 0 {
		err := q[0]
		f.failures[method] = q[1:]
		return err
	}
	return nil
}

func (f *Fake) newID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%s%06d", prefix, f.nextID)
}

func (f *Fake) locale(botID, localeID string) *Locale {
	if bot, ok := f.Bots[botID]; ok {
		return bot.Locales[localeID]
	}
	return nil
}

func (f *Fake) lockedLocale(botID, localeID string) (*Locale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := f.locale(botID, localeID)
	if loc == nil {
		return nil, NotFound()
	}
	return loc, nil
}

func (f *Fake) CreateBot(ctx context.Context, attrs map[string]any) (string, error) {
	if err := f.record("CreateBot", attrs["botName"]); err != nil {
		return "", err
	}
	id := f.newID("BOT1")
	name, _ := attrs["botName"].(string)
	f.mu.Lock()
	f.Bots[id] = &Bot{
		ID: id, Name: name, Attrs: attrs,
		Status:  lexapi.StatusAvailable,
		Locales: make(map[string]*Locale),
	}
	f.mu.Unlock()
	return id, nil
}

func (f *Fake) UpdateBot(ctx context.Context, botID string, attrs map[string]any) error {
	if err := f.record("UpdateBot", botID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bot, ok := f.Bots[botID]
	if !ok {
		return NotFound()
	}
	bot.Attrs = attrs
	return nil
}

func (f *Fake) DeleteBot(ctx context.Context, botID string) error {
	if err := f.record("DeleteBot", botID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Bots[botID]; !ok {
		return NotFound()
	}
	delete(f.Bots, botID)
	return nil
}

func (f *Fake) BotStatus(ctx context.Context, botID string) (string, error) {
	if err := f.record("BotStatus", botID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bot, ok := f.Bots[botID]
	if !ok {
		return "", NotFound()
	}
	return bot.Status, nil
}

func (f *Fake) BotIDByName(ctx context.Context, name string) (string, error) {
	if err := f.record("BotIDByName", name); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, bot := range f.Bots {
		if bot.Name == name {
			return id, nil
		}
	}
	return "", nil
}

func (f *Fake) CreateLocale(ctx context.Context, botID string, attrs map[string]any) error {
	localeID, _ := attrs["localeId"].(string)
	if err := f.record("CreateLocale", botID, localeID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bot, ok := f.Bots[botID]
	if !ok {
		return NotFound()
	}
	bot.Locales[localeID] = &Locale{
		Attrs:     attrs,
		Status:    lexapi.StatusNotBuilt,
		SlotTypes: make(map[string]*SlotType),
		Intents:   make(map[string]*Intent),
	}
	return nil
}

func (f *Fake) UpdateLocale(ctx context.Context, botID, localeID string, attrs map[string]any) error {
	if err := f.record("UpdateLocale", botID, localeID); err != nil {
		return err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return err
	}
	loc.Attrs = attrs
	return nil
}

func (f *Fake) DeleteLocale(ctx context.Context, botID, localeID string) error {
	if err := f.record("DeleteLocale", botID, localeID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bot, ok := f.Bots[botID]
	if !ok || bot.Locales[localeID] == nil {
		return NotFound()
	}
	delete(bot.Locales, localeID)
	return nil
}

func (f *Fake) LocaleStatus(ctx context.Context, botID, localeID string) (string, error) {
	if err := f.record("LocaleStatus", botID, localeID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := f.locale(botID, localeID)
	if loc == nil {
		return "", NotFound()
	}
	if len(loc.buildPolls) > 0 {
		loc.Status = loc.buildPolls[0]
		if len(loc.buildPolls) > 1 {
			loc.buildPolls = loc.buildPolls[1:]
		}
	}
	return loc.Status, nil
}

func (f *Fake) ListLocaleIDs(ctx context.Context, botID string) ([]string, error) {
	if err := f.record("ListLocaleIDs", botID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bot, ok := f.Bots[botID]
	if !ok {
		return nil, NotFound()
	}
	ids := make([]string, 0, len(bot.Locales))
	for id := range bot.Locales {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *Fake) CreateSlotType(ctx context.Context, botID, localeID string, attrs map[string]any) (string, error) {
	name, _ := attrs["slotTypeName"].(string)
	if err := f.record("CreateSlotType", botID, localeID, name); err != nil {
		return "", err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return "", err
	}
	id := f.newID("STYP")
	f.mu.Lock()
	loc.SlotTypes[id] = &SlotType{ID: id, Name: name, Attrs: attrs}
	f.mu.Unlock()
	return id, nil
}

func (f *Fake) UpdateSlotType(ctx context.Context, botID, localeID, slotTypeID string, attrs map[string]any) error {
	if err := f.record("UpdateSlotType", botID, localeID, slotTypeID); err != nil {
		return err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := loc.SlotTypes[slotTypeID]
	if !ok {
		return NotFound()
	}
	st.Attrs = attrs
	return nil
}

func (f *Fake) DeleteSlotType(ctx context.Context, botID, localeID, slotTypeID string) error {
	if err := f.record("DeleteSlotType", botID, localeID, slotTypeID); err != nil {
		return err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := loc.SlotTypes[slotTypeID]; !ok {
		return NotFound()
	}
	delete(loc.SlotTypes, slotTypeID)
	return nil
}

func (f *Fake) SlotTypeIDByName(ctx context.Context, botID, localeID, name string) (string, error) {
	if err := f.record("SlotTypeIDByName", botID, localeID, name); err != nil {
		return "", err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, st := range loc.SlotTypes {
		if st.Name == name {
			return id, nil
		}
	}
	return "", nil
}

func (f *Fake) CreateIntent(ctx context.Context, botID, localeID string, attrs map[string]any) (string, error) {
	name, _ := attrs["intentName"].(string)
	if err := f.record("CreateIntent", botID, localeID, name); err != nil {
		return "", err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return "", err
	}
	id := f.newID("INTN")
	f.mu.Lock()
	loc.Intents[id] = &Intent{ID: id, Name: name, Attrs: attrs, Slots: make(map[string]*Slot)}
	f.mu.Unlock()
	return id, nil
}

func (f *Fake) UpdateIntent(ctx context.Context, botID, localeID, intentID string, attrs map[string]any, priorities []lexapi.SlotPriority) error {
	if err := f.record("UpdateIntent", botID, localeID, intentID); err != nil {
		return err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := loc.Intents[intentID]
	if !ok {
		// The built-in fallback intent exists implicitly.
		in = &Intent{ID: intentID, Slots: make(map[string]*Slot)}
		if name, has := attrs["intentName"].(string); has {
			in.Name = name
		}
		loc.Intents[intentID] = in
	}
	in.Attrs = attrs
	if priorities != nil {
		in.Priorities = priorities
	}
	return nil
}

func (f *Fake) DeleteIntent(ctx context.Context, botID, localeID, intentID string) error {
	if err := f.record("DeleteIntent", botID, localeID, intentID); err != nil {
		return err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := loc.Intents[intentID]; !ok {
		return NotFound()
	}
	delete(loc.Intents, intentID)
	return nil
}

func (f *Fake) IntentIDByName(ctx context.Context, botID, localeID, name string) (string, error) {
	if err := f.record("IntentIDByName", botID, localeID, name); err != nil {
		return "", err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, in := range loc.Intents {
		if in.Name == name {
			return id, nil
		}
	}
	return "", nil
}

func (f *Fake) CreateSlot(ctx context.Context, botID, localeID, intentID, slotTypeID string, attrs map[string]any) (string, error) {
	name, _ := attrs["slotName"].(string)
	if err := f.record("CreateSlot", botID, localeID, intentID, name); err != nil {
		return "", err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return "", err
	}
	id := f.newID("SLOT")
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := loc.Intents[intentID]
	if !ok {
		return "", NotFound()
	}
	in.Slots[id] = &Slot{ID: id, Name: name, TypeID: slotTypeID, Attrs: attrs}
	return id, nil
}

func (f *Fake) UpdateSlot(ctx context.Context, botID, localeID, intentID, slotID, slotTypeID string, attrs map[string]any) error {
	if err := f.record("UpdateSlot", botID, localeID, intentID, slotID); err != nil {
		return err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := loc.Intents[intentID]
	if !ok {
		return NotFound()
	}
	slot, ok := in.Slots[slotID]
	if !ok {
		return NotFound()
	}
	slot.Attrs = attrs
	slot.TypeID = slotTypeID
	return nil
}

func (f *Fake) DeleteSlot(ctx context.Context, botID, localeID, intentID, slotID string) error {
	if err := f.record("DeleteSlot", botID, localeID, intentID, slotID); err != nil {
		return err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := loc.Intents[intentID]
	if !ok {
		return NotFound()
	}
	if _, ok := in.Slots[slotID]; !ok {
		return NotFound()
	}
	delete(in.Slots, slotID)
	return nil
}

func (f *Fake) SlotIDByName(ctx context.Context, botID, localeID, intentID, name string) (string, error) {
	if err := f.record("SlotIDByName", botID, localeID, intentID, name); err != nil {
		return "", err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := loc.Intents[intentID]
	if !ok {
		return "", NotFound()
	}
	for id, slot := range in.Slots {
		if slot.Name == name {
			return id, nil
		}
	}
	return "", nil
}

func (f *Fake) BuildLocale(ctx context.Context, botID, localeID string) error {
	if err := f.record("BuildLocale", botID, localeID); err != nil {
		return err
	}
	loc, err := f.lockedLocale(botID, localeID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(loc.buildPolls) == 0 {
		loc.Status = lexapi.StatusBuilt
	}
	return nil
}

func (f *Fake) CreateVersion(ctx context.Context, botID, description string, localeIDs []string) (string, error) {
	if err := f.record("CreateVersion", botID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Bots[botID]; !ok {
		return "", NotFound()
	}
	f.nextVer++
	version := fmt.Sprintf("%d", f.nextVer)
	f.Versions[version] = lexapi.StatusAvailable
	return version, nil
}

func (f *Fake) VersionStatus(ctx context.Context, botID, version string) (string, error) {
	if err := f.record("VersionStatus", botID, version); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.Versions[version]
	if !ok {
		return "", NotFound()
	}
	return status, nil
}

func (f *Fake) CreateAlias(ctx context.Context, botID string, attrs map[string]any) (string, error) {
	name, _ := attrs["botAliasName"].(string)
	if err := f.record("CreateAlias", botID, name); err != nil {
		return "", err
	}
	id := f.newID("ALIA")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Aliases[id] = &Alias{ID: id, Attrs: attrs, Status: lexapi.StatusAvailable}
	return id, nil
}

func (f *Fake) UpdateAlias(ctx context.Context, botID, aliasID string, attrs map[string]any) error {
	if err := f.record("UpdateAlias", botID, aliasID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.Aliases[aliasID]
	if !ok {
		// The built-in test alias exists implicitly on every bot.
		a = &Alias{ID: aliasID, Status: lexapi.StatusAvailable}
		f.Aliases[aliasID] = a
	}
	a.Attrs = attrs
	return nil
}

func (f *Fake) DeleteAlias(ctx context.Context, botID, aliasID string) error {
	if err := f.record("DeleteAlias", botID, aliasID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Aliases[aliasID]; !ok {
		return NotFound()
	}
	delete(f.Aliases, aliasID)
	return nil
}

func (f *Fake) AliasStatus(ctx context.Context, botID, aliasID string) (string, error) {
	if err := f.record("AliasStatus", botID, aliasID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.Aliases[aliasID]
	if !ok {
		return "", NotFound()
	}
	return a.Status, nil
}

var _ lexapi.API = (*Fake)(nil)
