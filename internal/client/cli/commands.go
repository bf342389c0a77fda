package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/trialdraft/internal/client/attachments"
	"github.com/dmitrijs2005/trialdraft/internal/client/editor"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/services"
)

var errUsage = errors.New("usage")

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

func parseSection(s string) (models.SectionKey, error) {
	k, ok := models.ParseSectionKey(s)
	if !ok {
		return "", fmt.Errorf("%w: %s", editor.ErrUnknownSection, s)
	}
	return k, nil
}

// splitFlags separates --flags from positional arguments.
func splitFlags(args []string) (pos []string, flags map[string]bool) {
	flags = map[string]bool{}
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			flags[strings.TrimPrefix(a, "--")] = true
			continue
		}
		pos = append(pos, a)
	}
	return pos, flags
}

func itemRef(args []string) (services.ItemRef, error) {
	k, err := parseSection(args[0])
	if err != nil {
		return services.ItemRef{}, err
	}
	return services.ItemRef{Section: k, Collection: args[1], ItemID: args[2]}, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) changed(res editor.Result) {
	if res.Changed {
		a.printf("ok\n")
	} else {
		a.printf("unchanged\n")
	}
}

func (a *App) Open(ctx context.Context, args []string) error {
	pos, flags := splitFlags(args)
	if len(pos) != 1 {
		return usage("open <trial-id> [--fresh]")
	}
	res, err := a.svc.Open(ctx, pos[0], services.LoadOptions{SkipDraft: flags["fresh"]})
	if err != nil {
		return err
	}
	a.printLoad(res)
	return nil
}

func (a *App) Reload(ctx context.Context, args []string) error {
	_, flags := splitFlags(args)
	res, err := a.svc.Reload(ctx, flags["fresh"])
	if err != nil {
		return err
	}
	a.printLoad(res)
	return nil
}

func (a *App) printLoad(res *models.LoadResult) {
	state := "online"
	if res.Offline {
		state = "offline"
	}
	a.printf("Loaded %s (%s)\n", res.TrialID, state)
	if res.LocalOnly {
		a.printf("Local-only save pending: run save once the record store is reachable.\n")
	}
	for _, k := range models.SaveOrder {
		if src, ok := res.Sources[k]; ok && src != models.SourceCanonical {
			a.printf("  %-14s %s\n", k, src)
		}
	}
}

func (a *App) Show(ctx context.Context, args []string) error {
	v := a.svc.Snapshot()
	if !v.Loaded {
		return editor.ErrNotLoaded
	}
	if len(args) == 0 {
		renderSummary(a.out, v)
		return nil
	}
	k, err := parseSection(args[0])
	if err != nil {
		return err
	}
	renderSection(a.out, k, v.Sources[k], v.Sections[k])
	return nil
}

func (a *App) Set(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("set <section> <field> [value...]")
	}
	k, err := parseSection(args[0])
	if err != nil {
		return err
	}
	res, err := a.svc.Dispatch(ctx, editor.SetField{Key: k, Field: args[1], Value: strings.Join(args[2:], " ")})
	if err != nil {
		return err
	}
	a.changed(res)
	return nil
}

func (a *App) AddValue(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usage("add <section> <list> <value...>")
	}
	k, err := parseSection(args[0])
	if err != nil {
		return err
	}
	res, err := a.svc.Dispatch(ctx, editor.AddListValue{Key: k, Field: args[1], Value: strings.Join(args[2:], " ")})
	if err != nil {
		return err
	}
	a.changed(res)
	return nil
}

func (a *App) DropValue(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usage("drop <section> <list> <value...>")
	}
	k, err := parseSection(args[0])
	if err != nil {
		return err
	}
	res, err := a.svc.Dispatch(ctx, editor.RemoveListValue{Key: k, Field: args[1], Value: strings.Join(args[2:], " ")})
	if err != nil {
		return err
	}
	a.changed(res)
	return nil
}

func (a *App) AddRow(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("row <section> <collection> [field=value...]")
	}
	k, err := parseSection(args[0])
	if err != nil {
		return err
	}

	fields := map[string]string{}
	var last string
	for _, arg := range args[2:] {
		name, value, ok := strings.Cut(arg, "=")
		switch {
		case ok:
			fields[name] = value
			last = name
		case last != "":
			// continuation of a value containing spaces
			fields[last] += " " + arg
		default:
			return usage("row <section> <collection> [field=value...]")
		}
	}

	res, err := a.svc.Dispatch(ctx, editor.AddItem{Key: k, Collection: args[1], Fields: fields})
	if err != nil {
		return err
	}
	a.printf("added row %s\n", res.ItemID)
	return nil
}

func (a *App) SetRow(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return usage("rowset <section> <collection> <id> <field> [value...]")
	}
	ref, err := itemRef(args)
	if err != nil {
		return err
	}
	res, err := a.svc.Dispatch(ctx, editor.SetItemField{
		Key:        ref.Section,
		Collection: ref.Collection,
		ItemID:     ref.ItemID,
		Field:      args[3],
		Value:      strings.Join(args[4:], " "),
	})
	if err != nil {
		return err
	}
	a.changed(res)
	return nil
}

func (a *App) setVisible(ctx context.Context, args []string, visible bool, cmd string) error {
	if len(args) != 3 {
		return usage(cmd + " <section> <collection> <id>")
	}
	ref, err := itemRef(args)
	if err != nil {
		return err
	}
	res, err := a.svc.Dispatch(ctx, editor.SetItemVisible{
		Key:        ref.Section,
		Collection: ref.Collection,
		ItemID:     ref.ItemID,
		Visible:    visible,
	})
	if err != nil {
		return err
	}
	a.changed(res)
	return nil
}

func (a *App) Hide(ctx context.Context, args []string) error {
	return a.setVisible(ctx, args, false, "hide")
}

func (a *App) Unhide(ctx context.Context, args []string) error {
	return a.setVisible(ctx, args, true, "unhide")
}

func (a *App) RemoveRow(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usage("rm <section> <collection> <id>")
	}
	ref, err := itemRef(args)
	if err != nil {
		return err
	}
	res, err := a.svc.Dispatch(ctx, editor.RemoveItem{Key: ref.Section, Collection: ref.Collection, ItemID: ref.ItemID})
	if err != nil {
		return err
	}
	a.changed(res)
	return nil
}

func (a *App) Attach(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return usage("attach <section> <collection> <id> <path>")
	}
	ref, err := itemRef(args)
	if err != nil {
		return err
	}

	path := args[3]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}

	att, err := a.svc.Attach(ctx, ref, filepath.Base(path), f, ct)
	if err != nil {
		return err
	}
	a.printf("attached %s %s\n", att.Name, att.URL)
	return nil
}

func (a *App) Detach(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return usage("detach <section> <collection> <id> <url|name>")
	}
	ref, err := itemRef(args)
	if err != nil {
		return err
	}
	res, err := a.svc.Detach(ctx, ref, strings.Join(args[3:], " "))
	if err != nil {
		return err
	}

	switch res {
	case attachments.DeleteOK:
		a.printf("detached\n")
	case attachments.DeleteOther:
		a.printf("detached; the stored file could not be deleted\n")
	default:
		a.printf("detached (file delete: %s)\n", res)
	}
	return nil
}

func (a *App) Log(ctx context.Context, args []string) error {
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return usage("log [n]")
		}
		n = v
	}

	v := a.svc.Snapshot()
	if !v.Loaded {
		return editor.ErrNotLoaded
	}
	var entries []models.ChangeLogEntry
	if logs := v.Sections[models.SectionLogs]; logs != nil {
		entries = logs.ChangeLog
	}
	if len(entries) == 0 {
		a.printf("no changes recorded\n")
		return nil
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	for _, e := range entries {
		renderChange(a.out, e)
	}
	return nil
}

func (a *App) Save(ctx context.Context, args []string) error {
	report, err := a.svc.Save(ctx)
	if err != nil {
		return err
	}
	renderReport(a.out, report)
	return nil
}

func (a *App) Status(ctx context.Context, args []string) error {
	v := a.svc.Snapshot()
	a.printf("mode:      %s\n", a.currentMode())
	if v.TrialID == "" {
		a.printf("trial:     none\n")
		return nil
	}
	a.printf("trial:     %s\n", v.TrialID)
	a.printf("loading:   %t\n", v.Loading)
	a.printf("saving:    %t\n", v.Saving)
	a.printf("offline:   %t\n", v.Offline)
	a.printf("local-only: %t\n", v.LocalOnly)
	if len(v.Dirty) > 0 {
		a.printf("unsaved:   %s\n", joinKeys(v.Dirty))
	}
	if v.LastSave != nil {
		a.printf("last save: %s at %s\n", v.LastSave.Outcome, v.LastSave.FinishedAt.Local().Format("15:04:05"))
	}
	return nil
}

// status is the prompt text.
func (a *App) status() string {
	v := a.svc.Snapshot()
	s := string(a.currentMode())
	if v.TrialID != "" {
		s = v.TrialID + " " + s
	}
	if len(v.Dirty) > 0 {
		s += " *"
	}
	if v.Saving {
		s += " saving"
	}
	return s
}

func joinKeys(keys []models.SectionKey) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return strings.Join(out, ", ")
}
