package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contentpilot/config"
	"contentpilot/resilience"
	"contentpilot/types"
)

// pipelineRun holds the artifacts of one job while its stages execute
type pipelineRun struct {
	o   *Orchestrator
	t   *tracker
	log *zap.Logger

	item    *types.ContentItem
	project *types.Project

	research *types.ResearchPayload
	draft    *types.Draft
	writer   string

	degraded []*StageError
}

func (p *pipelineRun) execute(ctx context.Context) *StageError {
	if err := p.load(ctx); err != nil {
		return fatal(types.StagePending, err)
	}

	if err := p.t.advance(ctx, types.StageResearching, config.ProgressResearch, "Researching topic"); err != nil {
		return fatal(types.StageResearching, err)
	}
	if err := p.runResearch(ctx); err != nil {
		return fatal(types.StageResearching, err)
	}

	if err := p.t.advance(ctx, types.StageWriting, config.ProgressWrite, "Writing article"); err != nil {
		return fatal(types.StageWriting, err)
	}
	if err := p.runWrite(ctx); err != nil {
		return fatal(types.StageWriting, err)
	}

	if err := p.t.advance(ctx, types.StageGeneratingImage, config.ProgressImage, "Generating featured image"); err != nil {
		return fatal(types.StageGeneratingImage, err)
	}
	if err := p.runImage(ctx); err != nil {
		p.degrade(types.StageGeneratingImage, err, "Image generation failed, continuing without image")
	}

	if err := p.t.advance(ctx, types.StageGeneratingImage, config.ProgressSave, "Saving article"); err != nil {
		return fatal(types.StageGeneratingImage, err)
	}
	if err := p.save(ctx); err != nil {
		return fatal(types.StageGeneratingImage, err)
	}

	if err := p.t.advance(ctx, types.StagePublishing, config.ProgressPublish, "Publishing article"); err != nil {
		return fatal(types.StagePublishing, err)
	}
	if err := p.runPublish(ctx); err != nil {
		p.degrade(types.StagePublishing, err, "Publishing failed, article kept as saved content")
	}

	if err := p.t.advance(ctx, types.StagePublishing, config.ProgressNotify, "Sending notifications"); err != nil {
		return fatal(types.StagePublishing, err)
	}
	p.notify()
	p.recordUsage()

	finalCtx, cancel := finalizeContext(ctx)
	defer cancel()
	p.markItem(finalCtx, types.StatusCompleted)
	if err := p.t.complete(finalCtx); err != nil {
		return fatal(types.StagePublishing, err)
	}
	return nil
}

// load fetches the item and its project and marks the item as generating
func (p *pipelineRun) load(ctx context.Context) error {
	item, err := p.o.deps.Content.GetItem(ctx, p.t.job.ContentItemID)
	if err != nil {
		return fmt.Errorf("load content item: %w", err)
	}
	project, err := p.o.deps.Content.GetProject(ctx, item.ProjectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	p.item = item
	p.project = project

	item.Status = types.StatusGenerating
	item.UpdatedAt = p.o.opts.Now()
	if err := p.o.deps.Content.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("mark item generating: %w", err)
	}

	return p.t.advance(ctx, types.StagePending, config.ProgressLoaded, fmt.Sprintf("Loaded %q", item.Title))
}

func (p *pipelineRun) runResearch(ctx context.Context) error {
	item := p.item
	now := p.o.opts.Now()

	if item.ResearchData != nil && item.ResearchedAt != nil && now.Sub(*item.ResearchedAt) < p.o.opts.ResearchTTL {
		p.research = item.ResearchData
		p.t.logf("Reusing research from %s", item.ResearchedAt.Format(time.RFC3339))
		return nil
	}

	req := types.ResearchRequest{Topic: item.Title, Keywords: item.Keywords}
	key := resilience.CacheKey("research", item.Title, resilience.KeywordSet(item.Keywords))

	payload, hit, err := resilience.GetOrCompute(ctx, p.o.deps.Cache, key,
		func(ctx context.Context) (*types.ResearchPayload, error) {
			res, desc, err := resilience.Cascade(ctx, p.o.deps.Researchers, req, resilience.CascadeOptions[*types.ResearchPayload]{
				Accept:      resilience.MinLength(p.o.opts.MinResearchLength, researchText),
				CallTimeout: p.o.opts.CallTimeout,
				OnFailure:   p.providerFailed,
			})
			if err != nil {
				return nil, err
			}
			p.t.logf("Research provided by %s", desc.Name)
			return res, nil
		})
	if err != nil {
		return err
	}
	if payload == nil {
		return errors.New("research returned no payload")
	}
	if hit {
		p.t.log("Research served from cache")
	}

	p.research = payload
	item.ResearchData = payload
	item.ResearchedAt = &now
	item.UpdatedAt = now
	if err := p.o.deps.Content.UpdateItem(ctx, item); err != nil {
		p.log.Warn("Failed to store research on item", zap.String("item_id", item.ID), zap.Error(err))
	}
	return nil
}

func (p *pipelineRun) runWrite(ctx context.Context) error {
	req := types.WriteRequest{
		Title:           p.item.Title,
		Keywords:        p.item.Keywords,
		TargetWordCount: p.item.TargetWordCount,
		Tone:            p.item.Tone,
		Research:        p.research,
	}
	draft, desc, err := resilience.Cascade(ctx, p.o.deps.Writers, req, resilience.CascadeOptions[*types.Draft]{
		Accept:      resilience.MinLength(p.o.opts.MinContentLength, draftText),
		CallTimeout: p.o.opts.CallTimeout,
		OnFailure:   p.providerFailed,
	})
	if err != nil {
		return err
	}
	if draft.Title == "" {
		draft.Title = p.item.Title
	}
	p.draft = draft
	p.writer = desc.Name
	p.t.logf("Article drafted by %s (%d words)", desc.Name, draft.WordCount)
	return nil
}

func (p *pipelineRun) runImage(ctx context.Context) error {
	if p.o.deps.Images == nil {
		p.t.log("Image generation not configured, skipping")
		return nil
	}
	if p.o.deps.Objects == nil {
		return errors.New("no object store configured for images")
	}

	policy := p.o.opts.ImageRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.t.logf("Image attempt %d failed, retrying in %s: %v", attempt, delay, err)
	}
	prompt := fmt.Sprintf("Featured image for an article titled %q", p.draft.Title)
	style := p.item.Tone
	if style == "" {
		style = "editorial"
	}

	data, err := resilience.Retry(ctx, policy, func(ctx context.Context) ([]byte, error) {
		callCtx, cancel := p.callContext(ctx)
		defer cancel()
		return p.o.deps.Images.Generate(callCtx, prompt, style)
	})
	if err != nil {
		return err
	}

	key := fmt.Sprintf("images/%s/%s.png", p.item.ID, p.t.job.ID)
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	url, err := p.o.deps.Objects.PutPublic(callCtx, key, data, "image/png")
	if err != nil {
		return fmt.Errorf("store image: %w", err)
	}

	p.t.job.Result.FeaturedImageURL = url
	p.t.logf("Featured image stored at %s", url)
	return nil
}

// save attaches the draft to the content item
func (p *pipelineRun) save(ctx context.Context) error {
	now := p.o.opts.Now()
	p.item.GeneratedContent = p.draft
	p.item.GeneratedAt = &now
	p.item.UpdatedAt = now
	if err := p.o.deps.Content.UpdateItem(ctx, p.item); err != nil {
		return fmt.Errorf("save article: %w", err)
	}
	p.t.job.Result.ContentID = p.item.ID
	return nil
}

func (p *pipelineRun) runPublish(ctx context.Context) error {
	if p.o.deps.Publisher == nil {
		p.t.log("Publisher not configured, skipping")
		return nil
	}

	status := p.project.PublishStatus
	if status == "" {
		status = "draft"
	}
	req := types.PublishRequest{
		Title:            p.draft.Title,
		Content:          p.draft.Content,
		Excerpt:          p.draft.MetaDescription,
		Status:           status,
		FeaturedImageURL: p.t.job.Result.FeaturedImageURL,
		Tags:             p.item.Keywords,
	}

	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	res, err := p.o.deps.Publisher.Publish(callCtx, req)
	if err != nil {
		return err
	}

	now := p.o.opts.Now()
	p.t.job.Result.PublishedPostID = res.PostID
	p.t.job.Result.PublishedURL = res.URL
	p.item.PublishedAt = &now
	p.item.PublishedURL = res.URL
	p.t.logf("Published as post %s", res.PostID)
	return nil
}

func (p *pipelineRun) notify() {
	if p.o.deps.Notifier == nil || p.project.NotifyContact == "" {
		return
	}
	contact := p.project.NotifyContact
	summary := p.summary()
	if p.o.dispatch.Submit("notify", func(ctx context.Context) error {
		return p.o.deps.Notifier.Send(ctx, contact, summary)
	}) {
		p.t.log("Notification queued")
	}
}

func (p *pipelineRun) recordUsage() {
	if p.o.deps.Usage == nil {
		return
	}
	event := types.UsageEvent{
		JobID:         p.t.job.ID,
		OwnerID:       p.t.job.OwnerID,
		ContentItemID: p.item.ID,
		Kind:          "article_generated",
		Provider:      p.writer,
		WordCount:     p.draft.WordCount,
		Degraded:      len(p.degraded) > 0,
		Timestamp:     p.o.opts.Now(),
	}
	p.o.dispatch.Submit("usage", func(ctx context.Context) error {
		return p.o.deps.Usage.Record(ctx, event)
	})
}

func (p *pipelineRun) summary() string {
	s := fmt.Sprintf("Article %q is ready", p.draft.Title)
	if url := p.t.job.Result.PublishedURL; url != "" {
		s += ": " + url
	}
	if len(p.degraded) > 0 {
		s += fmt.Sprintf(" (%d step(s) degraded)", len(p.degraded))
	}
	return s
}

// markItem records the final item status; failures only get logged
func (p *pipelineRun) markItem(ctx context.Context, status types.ContentStatus) {
	if p.item == nil {
		return
	}
	p.item.Status = status
	p.item.UpdatedAt = p.o.opts.Now()
	if err := p.o.deps.Content.UpdateItem(ctx, p.item); err != nil {
		p.log.Warn("Failed to update item status",
			zap.String("item_id", p.item.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (p *pipelineRun) degrade(stage types.Stage, err error, message string) {
	serr := degraded(stage, err)
	p.degraded = append(p.degraded, serr)
	p.t.logf("%s: %v", message, err)
	p.log.Warn("Stage degraded", zap.String("stage", string(stage)), zap.Error(err))
}

func (p *pipelineRun) providerFailed(desc resilience.ProviderDescriptor, err error) {
	p.t.logf("%s provider %s failed: %v", desc.Capability, desc.Name, err)
	p.log.Warn("Provider failed",
		zap.String("provider", desc.Name),
		zap.String("capability", desc.Capability),
		zap.Error(err))
}

func (p *pipelineRun) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.o.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.o.opts.CallTimeout)
}

func researchText(r *types.ResearchPayload) string {
	if r == nil {
		return ""
	}
	return r.Summary
}

func draftText(d *types.Draft) string {
	if d == nil {
		return ""
	}
	return d.Content
}
