// Package keynodes resolves the well-known graph nodes the reply agent works with.
package keynodes

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
)

// Resolver finds or creates a node by system identifier.
type Resolver interface {
	ResolveIdentifier(ctx context.Context, idtf string, t domain.ElementType) (domain.Addr, error)
}

type Keynodes struct {
	// action classes
	ActionStandardMessageReply domain.Addr
	ActionDirectInference      domain.Addr

	// action status sets
	QuestionInitiated              domain.Addr
	QuestionFinished               domain.Addr
	QuestionFinishedSuccessfully   domain.Addr
	QuestionFinishedUnsuccessfully domain.Addr
	ActionDeactivated              domain.Addr

	// role relations
	Rrel1 domain.Addr
	Rrel2 domain.Addr
	Rrel3 domain.Addr

	// non-role relations
	NrelAnswer            domain.Addr
	NrelReply             domain.Addr
	NrelAuthors           domain.Addr
	NrelMessageTheme      domain.Addr
	NrelScTextTranslation domain.Addr

	// classes and templates
	ConceptMessage                                    domain.Addr
	ConceptLanguage                                   domain.Addr
	ConceptAnswerOnStandardMessageRule                domain.Addr
	ConceptAnswerOnStandardMessageRuleClassByPriority domain.Addr
	TemplateReplyTarget                               domain.Addr
	LangEn                                            domain.Addr
}

// Resolve looks up every keynode, creating missing ones as plain constant nodes.
func Resolve(ctx context.Context, r Resolver) (*Keynodes, error) {
	k := &Keynodes{}
	for _, e := range k.entries() {
		addr, err := r.ResolveIdentifier(ctx, e.idtf, domain.NodeConst)
		if err != nil {
			return nil, fmt.Errorf("resolve keynode %s: %w", e.idtf, err)
		}
		*e.addr = addr
	}
	return k, nil
}

// RoleRelation returns rrel_n for n in 1..3, or InvalidAddr.
func (k *Keynodes) RoleRelation(n int) domain.Addr {
	switch n {
	case 1:
		return k.Rrel1
	case 2:
		return k.Rrel2
	case 3:
		return k.Rrel3
	}
	return domain.InvalidAddr
}

type entry struct {
	idtf string
	addr *domain.Addr
}

func (k *Keynodes) entries() []entry {
	return []entry{
		{"action_standard_message_reply", &k.ActionStandardMessageReply},
		{"action_direct_inference", &k.ActionDirectInference},
		{"question_initiated", &k.QuestionInitiated},
		{"question_finished", &k.QuestionFinished},
		{"question_finished_successfully", &k.QuestionFinishedSuccessfully},
		{"question_finished_unsuccessfully", &k.QuestionFinishedUnsuccessfully},
		{"action_deactivated", &k.ActionDeactivated},
		{"rrel_1", &k.Rrel1},
		{"rrel_2", &k.Rrel2},
		{"rrel_3", &k.Rrel3},
		{"nrel_answer", &k.NrelAnswer},
		{"nrel_reply", &k.NrelReply},
		{"nrel_authors", &k.NrelAuthors},
		{"nrel_message_theme", &k.NrelMessageTheme},
		{"nrel_sc_text_translation", &k.NrelScTextTranslation},
		{"concept_message", &k.ConceptMessage},
		{"concept_language", &k.ConceptLanguage},
		{"concept_answer_on_standard_message_rule", &k.ConceptAnswerOnStandardMessageRule},
		{"concept_answer_on_standard_message_rule_class_by_priority", &k.ConceptAnswerOnStandardMessageRuleClassByPriority},
		{"template_reply_target", &k.TemplateReplyTarget},
		{"lang_en", &k.LangEn},
	}
}
