package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitesync/internal/attend"
	"sitesync/internal/auth"
	"sitesync/internal/config"
	"sitesync/internal/facematch"
	"sitesync/internal/httpmiddleware"
	"sitesync/internal/media"
	"sitesync/internal/probe"
	"sitesync/internal/record"
	"sitesync/internal/session"
)

// The agent is the kiosk-mounted capture client: it resolves the backend
// origin pair, authenticates the monitor, and runs capture actions against
// the attendance pipeline. With no action it serves the ops endpoint only.
func main() {
	var (
		action       = flag.String("action", "serve", "checkin | checkout | reentry | identify | approve | reject | serve")
		image        = flag.String("image", "", "path to the captured photo")
		subjectID    = flag.String("subject", "", "subject id (reentry, or to skip recognition)")
		unauthorized = flag.Bool("unauthorized", false, "submit as an unauthorized capture")
		workDone     = flag.Bool("work-completed", false, "checkout: all tasks completed")
		equipBack    = flag.Bool("equipment-returned", false, "checkout: all equipment returned")
		approved     = flag.Bool("approved", true, "reentry: supervisor approval")
		recordID     = flag.Int64("id", 0, "attendance record id (approve/reject)")
		recordType   = flag.String("type", "checkin", "record type for approve/reject: checkin | checkout")
	)
	flag.Parse()

	cfg := config.Load()
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	sess := session.New()
	resolveOrigins(cfg, sess)
	login(cfg, sess)

	loc := probe.FixedLocation{Coords: probe.Coordinates{
		Latitude:  cfg.FixedLatitude,
		Longitude: cfg.FixedLongitude,
	}}
	dev := probe.StaticDevice{
		Model:        cfg.DeviceModel,
		Brand:        cfg.DeviceBrand,
		Manufacturer: cfg.DeviceManufacturer,
	}
	pr := probe.New(loc, dev)
	preparer := media.NewPreparer(media.StaticClassifier{Current: media.NetworkClass(cfg.NetworkClass)}, cfg.MediaMaxDim, "")

	submitter := attend.New(sess, pr, preparer)
	matcher := facematch.New(sess, preparer)
	mutator := record.New(sess)

	if *action != "serve" {
		runAction(cfg, sess, submitter, matcher, mutator, actionArgs{
			action:       *action,
			image:        *image,
			subjectID:    *subjectID,
			unauthorized: *unauthorized,
			workDone:     *workDone,
			equipBack:    *equipBack,
			approved:     *approved,
			recordID:     *recordID,
			recordType:   *recordType,
		})
		return
	}

	if err := serveOps(cfg, sess); err != nil {
		log.Fatalf("ops server failed: %v", err)
	}
}

// resolveOrigins populates the session's origin pair from the remote
// configuration endpoint, falling back to static configuration. Failure
// leaves the pair empty; pipeline calls then fail cleanly until an operator
// intervenes.
func resolveOrigins(cfg config.App, sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if origins, err := config.FetchOrigins(ctx, cfg.ConfigURL); err == nil {
		sess.SetBackends(origins.Primary, origins.Secondary)
		log.Printf("backend origins resolved from %s", cfg.ConfigURL)
		return
	} else if cfg.ConfigURL != "" {
		log.Printf("remote config unavailable: %v", err)
	}

	if cfg.BackendPrimary != "" && cfg.BackendSecondary != "" {
		sess.SetBackends(cfg.BackendPrimary, cfg.BackendSecondary)
		log.Println("backend origins taken from static configuration")
		return
	}
	log.Println("warning: no backend origins configured; submissions will fail until set")
}

func login(cfg config.App, sess *session.Session) {
	if cfg.Username == "" || cfg.Password == "" {
		log.Println("no credentials configured; running unauthenticated")
		return
	}
	base, err := sess.BackendURL()
	if err != nil {
		log.Printf("login skipped: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	tokens, err := auth.Login(ctx, nil, base, cfg.Username, cfg.Password)
	if err != nil {
		log.Printf("login failed: %v", err)
		return
	}
	sess.SetTokens(tokens.Access, tokens.Refresh)

	claims, err := auth.ClaimsOf(tokens.Access)
	if err != nil {
		log.Printf("could not read token claims: %v", err)
		sess.SetUser(cfg.Username, session.RoleUnset)
	} else {
		sess.SetUser(claims.Subject, session.Role(claims.Role))
		if auth.Expired(claims, time.Now()) {
			log.Println("warning: access token already expired")
		}
	}
	sess.SetProject(cfg.ProjectID, "")
	log.Printf("logged in as %s (%s)", sess.UserID(), sess.UserRole())
}

type actionArgs struct {
	action       string
	image        string
	subjectID    string
	unauthorized bool
	workDone     bool
	equipBack    bool
	approved     bool
	recordID     int64
	recordType   string
}

func runAction(cfg config.App, sess *session.Session, submitter *attend.Submitter, matcher *facematch.Client, mutator *record.Mutator, args actionArgs) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
	defer cancel()

	switch args.action {
	case "identify":
		res := matcher.Identify(ctx, args.image)
		if res.Err != "" {
			log.Fatalf("recognition failed: %s", res.Err)
		}
		if !res.MatchFound {
			log.Println("no match found")
			return
		}
		log.Printf("matched %s (%s)", res.Worker.Name, res.Worker.ID)

	case "checkin", "checkout":
		subj := resolveSubject(ctx, matcher, args)
		var res attend.Result
		if args.action == "checkin" {
			res = submitter.CheckIn(ctx, attend.Media{URI: args.image}, subj)
		} else {
			res = submitter.CheckOut(ctx, attend.Media{URI: args.image}, subj, args.workDone, args.equipBack)
		}
		report(res)

	case "reentry":
		if args.subjectID == "" {
			entries, err := mutator.PendingReEntries(ctx, sess.ProjectID())
			if err != nil {
				log.Fatalf("re-entry listing failed: %v", err)
			}
			for _, e := range entries {
				log.Printf("pending re-entry: %s (%s)", e.Subject.Name, e.Subject.ID)
			}
			return
		}
		report(submitter.SpecialReEntry(ctx, attend.Media{URI: args.image}, args.subjectID, args.approved))

	case "approve", "reject":
		act := record.ActionApprove
		if args.action == "reject" {
			act = record.ActionDelete
		}
		if mutator.Mutate(ctx, args.recordID, record.Type(args.recordType), act) {
			log.Printf("record %d: %s ok", args.recordID, args.action)
		} else {
			log.Fatalf("record %d: %s failed", args.recordID, args.action)
		}

	default:
		log.Fatalf("unknown action %q", args.action)
	}
}

// resolveSubject identifies the capture: an explicit subject id skips
// recognition, an unauthorized flag skips it too, otherwise the photo is
// matched and a miss degrades to an unauthorized capture (still submitted
// for audit).
func resolveSubject(ctx context.Context, matcher *facematch.Client, args actionArgs) attend.Subject {
	if args.unauthorized {
		return attend.Subject{Unauthorized: true}
	}
	if args.subjectID != "" {
		return attend.Subject{ID: args.subjectID}
	}
	res := matcher.Identify(ctx, args.image)
	if res.Err != "" {
		log.Printf("recognition error, submitting as unauthorized: %s", res.Err)
		return attend.Subject{Unauthorized: true}
	}
	if !res.MatchFound {
		log.Println("no match found, submitting as unauthorized")
		return attend.Subject{Unauthorized: true}
	}
	return attend.Subject{ID: res.Worker.ID}
}

func report(res attend.Result) {
	if !res.Success {
		if res.AwaitingSupervisor && res.AttendanceID != nil {
			log.Fatalf("submission parked on supervisor approval (record %d): %s", *res.AttendanceID, res.Message)
		}
		log.Fatalf("submission failed: %s", res.Message)
	}
	id := int64(0)
	if res.AttendanceID != nil {
		id = *res.AttendanceID
	}
	log.Printf("submission ok: %s subject=%s record=%d", res.Message, res.SubjectName, id)
}

func serveOps(cfg config.App, sess *session.Session) error {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		_, err := sess.BackendURL()
		status := http.StatusOK
		if err != nil {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "backend_configured": err == nil, "logged_in": sess.LoggedIn()})
	})

	// Operator action: exchange the backend origin pair. In-flight requests
	// keep the origin they resolved; the swap applies from the next call.
	r.POST("/v1/backend/swap", func(c *gin.Context) {
		sess.SwapBackends()
		current, err := sess.BackendURL()
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"primary": current})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("ops server listening on :%s", cfg.OpsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ops server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("agent exited")
	return nil
}
