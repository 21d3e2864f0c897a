// Package topics is the deterministic keyword-to-answer responder. It answers
// locally when the remote agent is skipped and is the guaranteed fallback when
// the agent is slow, down or unconfigured.
package topics

import (
	"fmt"
	"strings"
	"unicode"
)

// Predicate reports whether normalized (lowercased) text belongs to a topic.
type Predicate func(text string) bool

// Topic pairs a predicate with its canned answer.
type Topic struct {
	Name   string
	Match  Predicate
	Answer string
}

// ContainsAny matches when text contains any of the substrings.
func ContainsAny(subs ...string) Predicate {
	return func(text string) bool {
		for _, s := range subs {
			if strings.Contains(text, s) {
				return true
			}
		}
		return false
	}
}

// ContainsWord matches when any of the words appears as a whole word, so
// short acronyms like "ics" do not fire on "topics" or "tactics".
func ContainsWord(words ...string) Predicate {
	return func(text string) bool {
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, f := range fields {
			for _, w := range words {
				if f == w {
					return true
				}
			}
		}
		return false
	}
}

// Either matches when any of the predicates matches.
func Either(ps ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range ps {
			if p(text) {
				return true
			}
		}
		return false
	}
}

// DefaultTopics is evaluated in order; the first match wins. The order is part
// of the contract: bleeding control is checked before general security, for
// example, so "security guard bleeding" gets the bleeding-control answer.
var DefaultTopics = []Topic{
	{
		Name:  "bleeding_control",
		Match: ContainsAny("stop the bleed", "bleeding", "bleed", "tourniquet", "hemorrhage", "wound packing"),
		Answer: "Stop the Bleed is about controlling life-threatening bleeding in the first minutes after an injury. " +
			"First make sure the scene is safe and call 911 or have someone call. " +
			"Find the source of the bleeding and apply firm, direct pressure. " +
			"For severe bleeding on an arm or leg, place a tourniquet 2 to 3 inches above the wound and tighten it until the bleeding stops; note the time it was applied. " +
			"For wounds where a tourniquet will not work, pack the wound with gauze and keep holding pressure until help arrives.",
	},
	{
		Name:  "incident_command",
		Match: Either(ContainsAny("incident command", "unified command"), ContainsWord("ics", "nims")),
		Answer: "The Incident Command System (ICS) is a standardized structure for managing emergencies of any size. " +
			"The Incident Commander is in charge and is supported by the Command Staff: Public Information, Safety and Liaison officers. " +
			"The General Staff covers four sections: Operations, Planning, Logistics and Finance/Administration. " +
			"ICS relies on a clear chain of command, common terminology and a manageable span of control of about 3 to 7 people per supervisor.",
	},
	{
		Name:  "use_of_force",
		Match: ContainsAny("use of force", "force continuum", "deadly force", "force"),
		Answer: "Use of force must always be objectively reasonable and proportional to the threat you face. " +
			"The force continuum runs from officer presence and verbal commands, through soft and hard empty-hand control, to less-lethal tools and, only as a last resort, deadly force. " +
			"You may only use the minimum force necessary to control the situation, and you must de-escalate as soon as the threat decreases. " +
			"Every use of force has to be documented accurately and reported to your supervisor.",
	},
	{
		Name:  "active_threat",
		Match: ContainsAny("active shooter", "active threat", "run hide fight", "run, hide, fight", "lockdown"),
		Answer: "For an active threat, remember Run, Hide, Fight. " +
			"Run if there is a safe escape path, leave your belongings and help others get out if you can. " +
			"Hide if you cannot escape: lock or barricade the door, silence your phone and stay out of sight. " +
			"Fight only as a last resort when your life is in immediate danger. " +
			"When law enforcement arrives, keep your hands visible and follow their instructions.",
	},
	{
		Name:  "de_escalation",
		Match: ContainsAny("de-escalat", "deescalat", "escalation", "calm", "angry", "agitated"),
		Answer: "De-escalation is about lowering the emotional temperature before anyone gets hurt. " +
			"Keep a safe distance, stay calm and use a steady, respectful tone. " +
			"Listen actively, acknowledge the person's feelings and avoid arguing or making threats. " +
			"Offer simple choices, give the person time and always keep an exit route for yourself.",
	},
	{
		Name:  "first_aid",
		Match: Either(ContainsAny("first aid", "cardiac", "cpr"), ContainsWord("aed")),
		Answer: "For a person who is unresponsive and not breathing normally, call 911 and start CPR right away. " +
			"Push hard and fast in the center of the chest, at least 2 inches deep and 100 to 120 compressions per minute. " +
			"Send someone for an AED, turn it on as soon as it arrives and follow its voice prompts. " +
			"Keep going until help takes over or the person starts breathing.",
	},
	{
		Name:  "report_writing",
		Match: ContainsAny("report", "documentation", "document", "notes"),
		Answer: "A good incident report answers who, what, when, where, why and how. " +
			"Write it as soon as possible while the details are fresh, in the first person and in chronological order. " +
			"Stick to facts you observed, quote statements exactly and avoid opinions or guesses. " +
			"Review it for accuracy before you submit it, because it may be used in court.",
	},
	{
		Name:  "patrol",
		Match: ContainsAny("patrol", "access control", "post orders", "checkpoint"),
		Answer: "Effective patrol means being visible, alert and unpredictable. " +
			"Vary your routes and timing, check doors, locks and lighting, and note anything out of place. " +
			"Follow your post orders for access control: verify identification, log visitors and never leave a post unattended. " +
			"Report hazards and suspicious activity right away.",
	},
	{
		Name:  "security_general",
		Match: ContainsAny("security", "guard", "officer"),
		Answer: "A security officer's job is to observe, deter and report. " +
			"Your presence deters problems, your awareness spots them early and your reports give responders what they need. " +
			"Know your post orders, the limits of your authority and the emergency procedures for your site. " +
			"Professional conduct and clear communication are your most important tools.",
	},
	{
		Name:  "courses",
		Match: ContainsAny("certificat", "course", "class", "enroll", "exam", "quiz"),
		Answer: "Each course is made of short modules followed by an assessment. " +
			"You need a passing score on the final exam to earn your certificate, which you can download from your portal once it is issued. " +
			"If you have questions about enrollment or your progress, your instructor or the admin team can help.",
	},
}

// Responder is pure and total: every input produces a non-empty answer.
type Responder struct {
	topics   []Topic
	fallback string
}

func NewResponder(assistantName string) *Responder {
	return NewResponderWithTopics(assistantName, DefaultTopics)
}

// NewResponderWithTopics uses a custom ordered table instead of DefaultTopics.
func NewResponderWithTopics(assistantName string, table []Topic) *Responder {
	if strings.TrimSpace(assistantName) == "" {
		assistantName = "your training assistant"
	}
	return &Responder{
		topics: table,
		fallback: fmt.Sprintf(
			"I'm %s, your virtual training instructor. "+
				"I can help with Stop the Bleed, the Incident Command System, use of force, active threat response, "+
				"de-escalation, first aid and CPR, report writing, patrol and general security procedures. "+
				"What would you like to know more about?",
			assistantName,
		),
	}
}

// Match returns the first topic matching text.
func (r *Responder) Match(text string) (Topic, bool) {
	t := strings.ToLower(text)
	for _, topic := range r.topics {
		if topic.Match != nil && topic.Match(t) {
			return topic, true
		}
	}
	return Topic{}, false
}

// Respond returns the matching topic's answer or the capability description.
func (r *Responder) Respond(text string) string {
	if topic, ok := r.Match(text); ok && topic.Answer != "" {
		return topic.Answer
	}
	return r.fallback
}
