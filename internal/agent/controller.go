package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	agentctx "orbit/internal/context"
	"orbit/internal/logging"
	"orbit/internal/memory"
	"orbit/internal/perception"
	"orbit/internal/tokens"
	"orbit/internal/tools"
)

// Options bound one trajectory.
type Options struct {
	MaxSteps    int
	TokenBudget int
	MaxRetries  int
	MaxTokens   int // context size before compaction

	// OnSynthesis receives final-answer text incrementally as the LLM
	// streams it. Optional.
	OnSynthesis func(delta string)

	// Detector overrides goal-achievement detection. Defaults to
	// TagDetector.
	Detector GoalDetector
}

// Controller runs trajectories. Safe for concurrent use; each Run carries
// its own context, memory, and trajectory state.
type Controller struct {
	llm      perception.LLMClient
	registry *tools.Registry
	counter  *tokens.Counter
	ctxMgr   *agentctx.Manager
}

func NewController(llm perception.LLMClient, registry *tools.Registry) *Controller {
	counter := tokens.NewCounter()
	return &Controller{
		llm:      llm,
		registry: registry,
		counter:  counter,
		ctxMgr:   agentctx.NewManager(counter, llm),
	}
}

// run holds the mutable state of one trajectory execution.
type run struct {
	traj       Trajectory
	actx       agentctx.AgentContext
	mem        memory.EpisodicMemory
	budget     *tokens.Budget
	retries    map[string]int
	lastCall   *tools.ToolCall
	lastResult *tools.CallResult
	detector   GoalDetector
	opts       Options
}

// Run executes one trajectory for a goal. It always returns a usable
// trajectory; errors are reserved for programmer mistakes, never for
// degraded runs (transport trouble ends the trajectory as failed, limits
// end it as terminated).
func (c *Controller) Run(ctx context.Context, goal string, opts Options) (Trajectory, error) {
	if goal == "" {
		return Trajectory{}, fmt.Errorf("goal must not be empty")
	}
	if opts.Detector == nil {
		opts.Detector = TagDetector{}
	}

	r := &run{
		traj: Trajectory{
			RequestID: uuid.New().String(),
			Goal:      goal,
			Status:    StatusRunning,
		},
		actx:     c.ctxMgr.New(goal, opts.MaxTokens),
		mem:      memory.NewEpisodic(uuid.New().String()),
		budget:   tokens.NewBudget(opts.TokenBudget),
		retries:  make(map[string]int),
		detector: opts.Detector,
		opts:     opts,
	}

	logging.Agent("trajectory %s started: %s", r.traj.RequestID, goal)

	for r.traj.Status == StatusRunning &&
		r.traj.countSteps(StepThought) < opts.MaxSteps &&
		!r.budget.Exceeded() {
		c.step(ctx, r)
	}

	if r.traj.Status == StatusRunning {
		logging.Agent("trajectory %s hit step limit", r.traj.RequestID)
		r.traj.Status = StatusTerminated
	}

	r.traj.TotalTokens = TokenTotals{Input: r.budget.Input(), Output: r.budget.Output()}
	r.traj.Efficiency = computeEfficiency(&r.traj)
	r.traj.Reflections = r.mem.Reflections
	logging.Agent("trajectory %s finished: %s, %d steps, %d tokens, efficiency %.2f",
		r.traj.RequestID, r.traj.Status, len(r.traj.Steps), r.traj.TotalTokens.Sum(), r.traj.Efficiency)
	return r.traj, nil
}

// step runs one think/act/observe iteration, mutating the run state.
func (c *Controller) step(ctx context.Context, r *run) {
	if ctx.Err() != nil {
		logging.Agent("trajectory %s cancelled", r.traj.RequestID)
		r.traj.Status = StatusTerminated
		return
	}

	if c.ctxMgr.NeedsCompaction(r.actx) {
		compacted, err := c.ctxMgr.Compact(ctx, r.actx)
		if err != nil {
			logging.AgentWarn("compaction failed, continuing uncompacted: %v", err)
		} else {
			r.actx = compacted
		}
	}

	parsed, ok := c.think(ctx, r)
	if !ok {
		return
	}

	if parsed.Synthesis != "" {
		n := c.counter.Count(parsed.Synthesis)
		r.traj.addStep(StepSynthesis, parsed.Synthesis, n)
		r.traj.Status = StatusCompleted
		return
	}

	if parsed.ToolCall == nil {
		// Pure reasoning turn, loop back to think.
		return
	}

	result := c.act(ctx, r, *parsed.ToolCall)
	if !result.Success {
		c.handleFailure(ctx, r, *parsed.ToolCall, result)
	}

	c.observe(ctx, r, *parsed.ToolCall, result)
	if r.traj.Status != StatusRunning {
		return
	}

	if r.budget.Exceeded() {
		logging.Agent("trajectory %s exhausted its token budget", r.traj.RequestID)
		r.traj.Status = StatusTerminated
	}
}

// think calls the LLM and records the thought. Returns ok=false when the
// trajectory must stop.
func (c *Controller) think(ctx context.Context, r *run) (ParsedResponse, bool) {
	var relevant []memory.Reflection
	if r.lastResult != nil && !r.lastResult.Success && r.lastCall != nil {
		relevant = memory.Relevant(*r.lastCall, r.mem)
	}

	system := buildThinkSystemPrompt(r.traj.Goal, c.registry, relevant)
	user := buildThinkUserPrompt(r.actx)

	messages := perception.SystemUser(system, user)
	if r.lastResult != nil {
		messages = append(messages, perception.Message{
			Role:    perception.RoleUser,
			Content: buildToolResultMessage(*r.lastResult),
		})
	}

	stream := NewSynthesisStream(r.opts.OnSynthesis)
	resp, err := c.llm.Chat(ctx, messages, stream.Feed)
	if err != nil {
		if ctx.Err() != nil {
			r.traj.Status = StatusTerminated
			return ParsedResponse{}, false
		}
		logging.AgentError("think call failed: %v", err)
		r.traj.Status = StatusFailed
		return ParsedResponse{}, false
	}
	c.account(r, system+user, resp)

	parsed := ParseThinkResponse(resp.Content)
	thought := parsed.Thought
	if thought == "" && parsed.ToolCall != nil {
		thought = parsed.ToolCall.Reasoning
	}
	r.traj.addStep(StepThought, thought, c.counter.Count(thought))
	r.actx = c.ctxMgr.Append(r.actx, agentctx.EntryAssistant, thought)
	return parsed, true
}

// act validates then executes a tool call and records the action step.
// Validation failures become failed results without executing.
func (c *Controller) act(ctx context.Context, r *run, call tools.ToolCall) tools.CallResult {
	result := c.registry.ExecuteCall(ctx, call)

	summary := fmt.Sprintf("Called %s: success", call.Name)
	if !result.Success {
		summary = fmt.Sprintf("Called %s: failed (%s)", call.Name, result.Error)
	}

	step := r.traj.addStep(StepAction, summary, result.TokenCount)
	callCopy := call
	resultCopy := result
	step.ToolCall = &callCopy
	step.ToolResult = &resultCopy

	r.actx = c.ctxMgr.Append(r.actx, agentctx.EntryTool, summary)
	r.lastCall = &callCopy
	r.lastResult = &resultCopy
	return result
}

// handleFailure classifies a failed call and drives the reflection or
// escalation path. Failures never abort the trajectory here; at worst the
// loop proceeds with the best partial result.
func (c *Controller) handleFailure(ctx context.Context, r *run, call tools.ToolCall, result tools.CallResult) {
	errType := memory.ExtractErrorType(result.Error, call)
	key := memory.RetryKey(call)

	switch {
	case memory.IsRepeated(errType, r.mem):
		alt, err := memory.SuggestAlternative(ctx, c.llm, call, r.mem, c.registry.Names())
		if err != nil {
			r.traj.Status = StatusTerminated
			return
		}
		content := fmt.Sprintf("Repeated %s errors. Escalating: try %s with %s",
			errType, alt.Name, memory.CanonicalParams(alt.Parameters))
		r.traj.addStep(StepReflection, content, c.counter.Count(content))
		r.actx = c.ctxMgr.Append(r.actx, agentctx.EntryObservation, content)
		logging.Agent("escalation after repeated %s: suggesting %s", errType, alt.Name)

	case r.retries[key] < r.opts.MaxRetries:
		r.retries[key]++
		refl, err := memory.GenerateReflection(ctx, c.llm, call, result.Error, agentctx.Serialize(r.actx))
		if err != nil {
			r.traj.Status = StatusTerminated
			return
		}
		r.mem = memory.Store(r.mem, refl)
		r.actx = c.ctxMgr.AddReflection(r.actx, refl)
		content := fmt.Sprintf("Reflection on %s failure: %s Fix: %s", errType, refl.Analysis, refl.SuggestedFix)
		r.traj.addStep(StepReflection, content, c.counter.Count(content))

	default:
		logging.AgentWarn("max retries reached for %s, proceeding with partial result", key)
	}
}

// observe asks the LLM to assess progress and checks goal achievement.
func (c *Controller) observe(ctx context.Context, r *run, call tools.ToolCall, result tools.CallResult) {
	if ctx.Err() != nil {
		r.traj.Status = StatusTerminated
		return
	}

	prompt := buildObservePrompt(r.traj.Goal, call, result)
	resp, err := c.llm.Chat(ctx, perception.SystemUser(observeInstructions, prompt), nil)
	if err != nil {
		if ctx.Err() != nil {
			r.traj.Status = StatusTerminated
			return
		}
		logging.AgentError("observe call failed: %v", err)
		r.traj.Status = StatusFailed
		return
	}
	c.account(r, observeInstructions+prompt, resp)

	observation := resp.Content
	r.traj.addStep(StepObservation, observation, c.counter.Count(observation))
	r.actx = c.ctxMgr.Append(r.actx, agentctx.EntryObservation, observation)

	if r.detector.Achieved(r.traj.Goal, observation) {
		r.actx = c.ctxMgr.MarkSubtaskComplete(r.actx, r.traj.Goal)
		r.traj.Status = StatusCompleted
		logging.Agent("trajectory %s goal achieved", r.traj.RequestID)
		c.synthesize(ctx, r)
	}
}

const synthesizeInstructions = `The goal has been achieved. Write the complete final answer for the user,
grounded only in the facts gathered so far, inside a <synthesis> tag.`

// synthesize requests the final answer once the goal is achieved. Best
// effort; on failure the latest observation serves as the partial result.
func (c *Controller) synthesize(ctx context.Context, r *run) {
	stream := NewSynthesisStream(r.opts.OnSynthesis)
	resp, err := c.llm.Chat(ctx, perception.SystemUser(synthesizeInstructions, agentctx.Serialize(r.actx)), stream.Feed)
	if err != nil {
		logging.AgentWarn("final synthesis failed, keeping observation as result: %v", err)
		return
	}
	c.account(r, synthesizeInstructions, resp)

	content := ParseThinkResponse(resp.Content).Synthesis
	if content == "" {
		content = strings.TrimSpace(resp.Content)
	}
	if content != "" {
		r.traj.addStep(StepSynthesis, content, c.counter.Count(content))
	}
}

// account books token usage, estimating when the transport reported none.
func (c *Controller) account(r *run, prompt string, resp *perception.ChatResponse) {
	if resp.Usage != nil {
		r.budget.Add(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		return
	}
	r.budget.Add(c.counter.Count(prompt), c.counter.Count(resp.Content))
}
