package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/cmd/server"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/activity"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/api"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/app"
	appkafka "github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/broker"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/compose"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/embed"
	config "github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/init"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/logger"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/session"
	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/store"
)

var logg = logger.New()

const usage = `usage: chyrp <command> [flags] [args]

commands:
  feed [--query q] [--pages n] [--expanded]   list posts
  feed --interactive                         browse with search, more and delete
  tag <tag>                                   posts with a tag
  category <slug>                             posts in a category
  show <id> [--html]                          one post with comments and webmentions
  create --type t --title ... [--file f]...   publish a post
  edit <id> [--title ...]                     change your post
  delete <id> [--yes]                         delete your post
  like <id>                                   like or unlike
  comment <id> <text>                         add a comment
  login <username> [--password p]
  register <username> <email> [--password p]
  logout | whoami | theme [--toggle]
  embed <url>                                 print embed markup for a URL
  tail                                        print activity events
  server                                      run the development API server
`

func main() {
	// Without a command, MODE from the environment or config file decides
	name, args := "", []string(nil)
	if len(os.Args) > 1 {
		name, args = os.Args[1], os.Args[2:]
	} else if name = config.Init(nil).Mode; name == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Setup OS signal handling for graceful shutdown (SIGINT, SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, name, args, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(1)
	}
}

// command carries the flag set of one invocation and what it needs from
// the environment.
type command struct {
	name string
	fs   *pflag.FlagSet
	cfg  *config.Config
}

func newCommand(name string) *command {
	return &command{name: name, fs: config.Flags(name)}
}

func (c *command) parse(args []string, minArgs int) ([]string, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	c.cfg = config.Init(c.fs)
	logger.SetLevel(c.cfg.LogLevel)
	if c.fs.NArg() < minArgs {
		return nil, fmt.Errorf("%s: expected %d argument(s)\n%s", c.name, minArgs, usage)
	}
	return c.fs.Args(), nil
}

func run(ctx context.Context, name string, args []string, in io.Reader, out io.Writer) error {
	c := newCommand(name)
	switch name {
	case "server":
		return runServer(ctx, c, args)
	case "tail":
		return runTail(ctx, c, args, out)
	case "-h", "--help", "help":
		fmt.Fprint(out, usage)
		return nil
	}

	build, ok := shellCommands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", name, usage)
		return fmt.Errorf("unknown command %q", name)
	}
	action := build(c.fs)
	rest, err := c.parse(args, action.args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	sh, closeFn, err := openShell(c.cfg, in, out)
	if err != nil {
		logg.Error("main", "Failed to start", err)
		return err
	}
	defer closeFn()
	return action.run(ctx, sh, rest)
}

// openShell wires the client stack: state store, session, API client,
// optional activity publisher and embed resolver.
func openShell(cfg *config.Config, in io.Reader, out io.Writer) (*app.Shell, func(), error) {
	st, err := store.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	sess, err := session.Open(st)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("open session: %w", err)
	}

	var svc api.Service = api.NewClient(cfg.APIURL, cfg.HTTPTimeout, sess.Token)
	closers := []func(){sess.Close}
	if cfg.KafkaBroker != "" {
		w := appkafka.NewKafkaWriter(kafkaConfig(cfg))
		svc = activity.NewPublisher(svc, w)
		closers = append(closers, func() {
			if err := w.Close(); err != nil {
				logg.Error("main", "Kafka close error", err)
			}
		})
	}

	sh := app.New(sess, svc, embed.NewResolver(cfg.EmbedURL, cfg.HTTPTimeout), out, in, app.Options{
		SearchDebounce:    cfg.SearchDebounce,
		RedirectDelay:     cfg.RedirectDelay,
		UploadConcurrency: cfg.UploadConcurrency,
		Captcha:           cfg.Captcha,
	})
	return sh, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func kafkaConfig(cfg *config.Config) appkafka.KafkaConfig {
	return appkafka.KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		Partition:    cfg.KafkaPartition,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
	}
}

func runServer(ctx context.Context, c *command, args []string) error {
	if _, err := c.parse(args, 0); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	server.Run(ctx, server.New([]byte(c.cfg.JWTSecret)), c.cfg.ServerAddr)
	logg.Info("main", "Shutdown completed")
	return nil
}

func runTail(ctx context.Context, c *command, args []string, out io.Writer) error {
	if _, err := c.parse(args, 0); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if c.cfg.KafkaBroker == "" {
		err := errors.New("tail needs --kafka-broker or KAFKA_BROKER")
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	r := appkafka.NewKafkaReader(kafkaConfig(c.cfg))
	defer r.Close()
	activity.Tail(ctx, r, out)
	return nil
}

// shellAction is a command run against the shell. args is the number of
// positional arguments it requires.
type shellAction struct {
	args int
	run  func(ctx context.Context, sh *app.Shell, args []string) error
}

var shellCommands = map[string]func(fs *pflag.FlagSet) shellAction{
	"feed": func(fs *pflag.FlagSet) shellAction {
		query := fs.StringP("query", "q", "", "filter by tag substring")
		pages := fs.Int("pages", 1, "number of pages to show")
		expanded := fs.Bool("expanded", false, "show full post bodies")
		interactive := fs.BoolP("interactive", "i", false, "keep the feed open and read search, more and delete commands")
		return shellAction{run: func(ctx context.Context, sh *app.Shell, _ []string) error {
			p := app.Page{Name: app.PageHome, Query: *query, Pages: *pages, Expanded: *expanded}
			if *interactive {
				return sh.Browse(ctx, p)
			}
			return sh.Navigate(ctx, p)
		}}
	},
	"tag": func(fs *pflag.FlagSet) shellAction {
		return shellAction{args: 1, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			return sh.Navigate(ctx, app.Page{Name: app.PageTag, Tag: args[0]})
		}}
	},
	"category": func(fs *pflag.FlagSet) shellAction {
		return shellAction{args: 1, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			return sh.Navigate(ctx, app.Page{Name: app.PageCategory, Slug: args[0]})
		}}
	},
	"show": func(fs *pflag.FlagSet) shellAction {
		html := fs.Bool("html", false, "also print the rendered HTML body")
		return shellAction{args: 1, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			id, err := postID(args[0])
			if err != nil {
				return err
			}
			return sh.Navigate(ctx, app.Page{Name: app.PagePost, PostID: id, Expanded: true, HTML: *html})
		}}
	},
	"create": createCommand,
	"edit":   editCommand,
	"delete": func(fs *pflag.FlagSet) shellAction {
		yes := fs.BoolP("yes", "y", false, "do not ask for confirmation")
		return shellAction{args: 1, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			id, err := postID(args[0])
			if err != nil {
				return err
			}
			if *yes {
				sh.In.Reset(strings.NewReader("y\n"))
			}
			return sh.Delete(ctx, id)
		}}
	},
	"like": func(fs *pflag.FlagSet) shellAction {
		return shellAction{args: 1, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			id, err := postID(args[0])
			if err != nil {
				return err
			}
			return sh.Like(ctx, id)
		}}
	},
	"comment": func(fs *pflag.FlagSet) shellAction {
		return shellAction{args: 2, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			id, err := postID(args[0])
			if err != nil {
				return err
			}
			return sh.Comment(ctx, id, strings.Join(args[1:], " "))
		}}
	},
	"login": func(fs *pflag.FlagSet) shellAction {
		password := fs.String("password", "", "password, asked for when empty")
		return shellAction{args: 1, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			return sh.Login(ctx, args[0], *password)
		}}
	},
	"register": func(fs *pflag.FlagSet) shellAction {
		password := fs.String("password", "", "password, asked for when empty")
		return shellAction{args: 2, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			return sh.Register(ctx, args[0], args[1], *password)
		}}
	},
	"logout": func(fs *pflag.FlagSet) shellAction {
		return shellAction{run: func(ctx context.Context, sh *app.Shell, _ []string) error {
			return sh.Logout()
		}}
	},
	"whoami": func(fs *pflag.FlagSet) shellAction {
		return shellAction{run: func(ctx context.Context, sh *app.Shell, _ []string) error {
			sh.Whoami()
			return nil
		}}
	},
	"theme": func(fs *pflag.FlagSet) shellAction {
		toggle := fs.Bool("toggle", false, "switch between light and dark")
		return shellAction{run: func(ctx context.Context, sh *app.Shell, _ []string) error {
			return sh.Theme(*toggle)
		}}
	},
	"embed": func(fs *pflag.FlagSet) shellAction {
		return shellAction{args: 1, run: func(ctx context.Context, sh *app.Shell, args []string) error {
			return sh.ResolveEmbed(ctx, args[0])
		}}
	},
}

func postID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		err := fmt.Errorf("invalid post id %q", s)
		fmt.Fprintln(os.Stderr, err)
		return 0, err
	}
	return id, nil
}

// postFlags are the fields shared by create and edit.
type postFlags struct {
	fs          *pflag.FlagSet
	title       *string
	body        *string
	tags        *string
	category    *string
	attribution *string
	license     *string
	quote       *string
	author      *string
	url         *string
}

func addPostFlags(fs *pflag.FlagSet) *postFlags {
	return &postFlags{
		fs:          fs,
		title:       fs.String("title", "", "post title"),
		body:        fs.String("body", "", "body text, caption or link description"),
		tags:        fs.String("tags", "", "comma separated tags"),
		category:    fs.String("category", "", "category slug or name"),
		attribution: fs.String("attribution", "", "source attribution"),
		license:     fs.String("license", "", "license, at most 255 characters"),
		quote:       fs.String("quote", "", "quote text"),
		author:      fs.String("author", "", "quote author"),
		url:         fs.String("url", "", "link URL"),
	}
}

func createCommand(fs *pflag.FlagSet) shellAction {
	pf := addPostFlags(fs)
	typ := fs.StringP("type", "t", string(models.TypeText), "text, photo, video, audio, quote or link")
	files := fs.StringArray("file", nil, "media file to upload, repeatable")
	captcha := fs.String("captcha", "", "CAPTCHA answer, asked for when empty")
	embedURL := fs.String("embed", "", "URL to resolve and embed in the body")

	return shellAction{run: func(ctx context.Context, sh *app.Shell, _ []string) error {
		t, ok := models.ParsePostType(*typ)
		if !ok {
			err := fmt.Errorf("unknown post type %q", *typ)
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		d := compose.NewDraft(t)
		d.Title = *pf.title
		d.Tags = *pf.tags
		d.Attribution = *pf.attribution
		d.License = *pf.license

		media := compose.Media{Caption: *pf.body}
		for _, f := range *files {
			media.Files = append(media.Files, compose.FileFromPath(f))
		}
		switch t {
		case models.TypeText:
			d.Content = compose.Text{Body: *pf.body}
		case models.TypePhoto:
			d.Content = compose.Photo{Media: media}
		case models.TypeVideo:
			d.Content = compose.Video{Media: media}
		case models.TypeAudio:
			d.Content = compose.Audio{Media: media}
		case models.TypeQuote:
			d.Content = compose.Quote{Text: firstNonEmpty(*pf.quote, *pf.body), Author: *pf.author}
		case models.TypeLink:
			d.Content = compose.Link{URL: *pf.url, Description: *pf.body}
		}

		return sh.Create(ctx, app.CreateRequest{
			Draft:         d,
			Category:      *pf.category,
			CaptchaAnswer: *captcha,
			EmbedURL:      *embedURL,
		})
	}}
}

func editCommand(fs *pflag.FlagSet) shellAction {
	pf := addPostFlags(fs)
	typ := fs.StringP("type", "t", "", "post type, which cannot be changed")

	return shellAction{args: 1, run: func(ctx context.Context, sh *app.Shell, args []string) error {
		id, err := postID(args[0])
		if err != nil {
			return err
		}
		return sh.Edit(ctx, id, *pf.category, func(d *compose.Draft) {
			if fs.Changed("type") {
				if t, ok := models.ParsePostType(*typ); ok {
					d.SetType(t)
				}
			}
			pf.apply(d)
		})
	}}
}

// apply copies the flags given on the command line into d.
func (pf *postFlags) apply(d *compose.Draft) {
	set := func(name string, dst *string, v string) {
		if pf.fs.Changed(name) {
			*dst = v
		}
	}
	set("title", &d.Title, *pf.title)
	set("tags", &d.Tags, *pf.tags)
	set("attribution", &d.Attribution, *pf.attribution)
	set("license", &d.License, *pf.license)

	switch c := d.Content.(type) {
	case compose.Text:
		set("body", &c.Body, *pf.body)
		d.Content = c
	case compose.Photo:
		set("body", &c.Caption, *pf.body)
		d.Content = c
	case compose.Video:
		set("body", &c.Caption, *pf.body)
		d.Content = c
	case compose.Audio:
		set("body", &c.Caption, *pf.body)
		d.Content = c
	case compose.Quote:
		set("quote", &c.Text, *pf.quote)
		set("author", &c.Author, *pf.author)
		d.Content = c
	case compose.Link:
		set("url", &c.URL, *pf.url)
		set("body", &c.Description, *pf.body)
		d.Content = c
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
