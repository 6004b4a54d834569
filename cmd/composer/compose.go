package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikequentel/threadcomposer/internal/bootstrap"
	"github.com/mikequentel/threadcomposer/internal/budget"
	"github.com/mikequentel/threadcomposer/internal/config"
	"github.com/mikequentel/threadcomposer/internal/editor"
	"github.com/mikequentel/threadcomposer/internal/emoji"
	"github.com/mikequentel/threadcomposer/internal/instance"
	"github.com/mikequentel/threadcomposer/internal/logging"
	"github.com/mikequentel/threadcomposer/internal/model"
	"github.com/mikequentel/threadcomposer/internal/xclient"
)

// emojiWait bounds how long the CLI lets the background emoji fetch land
// before counting.
const emojiWait = 3 * time.Second

func run(ctx context.Context, out io.Writer, o options, dryRunFlag bool) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if dryRunFlag {
		cfg.Post.DryRun = o.dryRun
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inst := resolveInstance(ctx, cfg, logger)

	var emojis bootstrap.EmojiService
	if cfg.Instance.URL != "" {
		store, err := emoji.OpenStore(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		svc := &emoji.Service{Instance: cfg.Instance.URL, Store: store, Logger: logger}
		if !cfg.Post.DryRun {
			svc.Remote = emoji.NewClient(cfg.Instance.URL, nil)
		}
		emojis = svc
	}

	var client bootstrap.Client = offlineClient{}
	var x *xclient.Client
	if !cfg.Post.DryRun {
		creds := xclient.Credentials(cfg.X)
		if missing := creds.Missing(); len(missing) > 0 {
			return fmt.Errorf("missing X credentials: %s", strings.Join(missing, ", "))
		}
		x = xclient.New(creds, xclient.WithLogger(logger))
		client = x
	}

	thread, boot, ui, err := openComposer(o, cfg, logger, client, inst, emojis, cancel)
	if err != nil {
		return err
	}
	if err := fill(ctx, boot, thread, o); err != nil {
		return err
	}
	if emojis != nil {
		pump(ui, thread.Len(), emojiWait)
	}

	limits := boot.Limits()
	report(out, thread, limits)
	if err := thread.CanSubmit(limits); err != nil {
		return err
	}

	if cfg.Post.DryRun {
		fmt.Fprintln(out, "DRY RUN ✅ (no network calls)")
		for i, s := range thread.Sessions() {
			fmt.Fprintf(out, "Will post %d/%d:\n---\n%s\n---\n", i+1, thread.Len(), xclient.StatusText(s))
			for _, m := range s.Attachments().Media() {
				fmt.Fprintf(out, "Image: %s\n", m.Path)
			}
		}
		return nil
	}

	if err := boot.Revalidate(ctx); err != nil {
		return err
	}
	ids, err := x.Publish(ctx, thread, limits)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Posted %d tweet(s), first ID %d\n", len(ids), ids[0])
	return nil
}

func openComposer(o options, cfg *config.Config, logger *zap.Logger, client bootstrap.Client,
	inst *instance.Instance, emojis bootstrap.EmojiService, cancel context.CancelFunc,
) (*editor.Thread, *bootstrap.Bootstrap, chan func(), error) {
	mode := editor.ModeNew
	var sessOpts []editor.SessionOption
	if o.replyTo != "" {
		mode = editor.ModeReplyTo
		sessOpts = append(sessOpts, editor.WithStatus(&model.Status{ID: o.replyTo}))
	}
	if o.visibility != "" {
		if !model.Visibility(o.visibility).Valid() {
			return nil, nil, nil, fmt.Errorf("unknown visibility %q", o.visibility)
		}
		sessOpts = append(sessOpts, editor.WithVisibility(model.Visibility(o.visibility)))
	}
	sessOpts = append(sessOpts, editor.WithInitialText(o.text))

	main := editor.NewSession(mode, sessOpts...)
	thread, err := editor.NewThread(main,
		editor.WithLogger(logger),
		editor.WithStrictFocus(cfg.Editor.StrictFocus))
	if err != nil {
		return nil, nil, nil, err
	}

	ui := make(chan func(), 16)
	boot := bootstrap.New(bootstrap.Env{
		Client:   client,
		Instance: inst,
		Emojis:   emojis,
		Closer: bootstrap.CloserFunc(func() {
			logger.Warn("composer closed: not authenticated")
			cancel()
		}),
		Dispatch: func(fn func()) { ui <- fn },
		Logger:   logger,
	}, thread)
	return thread, boot, ui, nil
}

// fill activates every session and applies the flags to it.
func fill(ctx context.Context, boot *bootstrap.Bootstrap, thread *editor.Thread, o options) error {
	main := thread.Main()
	if err := boot.Activate(ctx, main); err != nil {
		return err
	}
	if o.replyTo != "" && o.text != "" {
		if err := main.SetText(main.Text() + o.text); err != nil {
			return err
		}
	}
	thread.Focus().Assign(main.ID(), editor.FieldText)

	if o.spoiler != "" {
		if err := main.Spoiler().Toggle(true); err != nil {
			return err
		}
		if err := main.Spoiler().SetText(o.spoiler); err != nil {
			return err
		}
	}
	for i, path := range o.media {
		if err := ensureFile(path); err != nil {
			return fmt.Errorf("image missing or unreadable: %s (%w)", path, err)
		}
		c := model.MediaContainer{ID: fmt.Sprintf("media-%d", i+1), Path: path, MIME: mimeFor(path)}
		if err := main.Attachments().EnableMedia(c); err != nil {
			return err
		}
	}

	for _, text := range o.followUps {
		id, err := thread.AddFollowUp()
		if err != nil {
			return err
		}
		s, err := thread.Session(id)
		if err != nil {
			return err
		}
		if err := boot.Activate(ctx, s); err != nil {
			return err
		}
		if err := s.SetText(text); err != nil {
			return err
		}
		thread.Focus().Assign(id, editor.FieldText)
	}
	return nil
}

// pump runs n dispatched results on this goroutine, giving up after wait.
func pump(ui chan func(), n int, wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for ; n > 0; n-- {
		select {
		case fn := <-ui:
			fn()
		case <-timer.C:
			return
		}
	}
}

func report(out io.Writer, thread *editor.Thread, limits budget.Limits) {
	for i, s := range thread.Sessions() {
		remaining := s.Remaining(limits)
		flag := ""
		if remaining < 0 {
			flag = " (over limit)"
		}
		fmt.Fprintf(out, "post %d/%d [%s, %s]: %d characters left%s\n",
			i+1, thread.Len(), s.Visibility(), s.Attachments().Kind(), remaining, flag)
	}
}

func resolveInstance(ctx context.Context, cfg *config.Config, logger *zap.Logger) *instance.Instance {
	inst := instance.Static("x.com", instance.XMaxCharacters, cfg.Instance.URLLength)
	if cfg.Instance.URL != "" {
		inst = instance.Static(cfg.Instance.URL, 0, cfg.Instance.URLLength)
		if !cfg.Post.DryRun {
			fetched, err := instance.Fetch(ctx, cfg.Instance.URL, nil)
			if err != nil {
				logger.Warn("instance limits unavailable, using defaults", zap.Error(err))
			} else {
				inst = fetched
			}
		}
	}
	return inst.WithMaxCharacters(cfg.Instance.MaxCharacters)
}

// offlineClient stands in for X during dry runs.
type offlineClient struct{}

func (offlineClient) IsAuthenticated(context.Context) bool { return true }

// ensureFile checks that path is a regular file this process can read.
func ensureFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return readable(f, path)
}

// readable reads one byte from r; an empty file is fine.
func readable(r io.Reader, name string) error {
	if _, err := r.Read(make([]byte, 1)); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func mimeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
