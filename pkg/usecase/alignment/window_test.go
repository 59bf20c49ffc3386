package alignment_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/concordhq/concord/pkg/model"
	"github.com/concordhq/concord/pkg/usecase/alignment"
)

func turn(sender model.Sender, content string) model.ConversationTurn {
	return model.ConversationTurn{Sender: sender, Content: content}
}

func TestBuildQueryExcludesGuardian(t *testing.T) {
	history := []model.ConversationTurn{
		turn(model.SenderUser, "ship it"),
		turn(model.SenderGuardian, "off track"),
		turn(model.SenderTeammate, "ok"),
	}

	query := alignment.BuildQuery(history, 4)
	gt.Equal(t, query, "User: ship it\nTeammate: ok")
	gt.S(t, query).NotContains("off track")
	gt.S(t, query).NotContains("Guardian")
}

func TestBuildQueryWindow(t *testing.T) {
	history := []model.ConversationTurn{
		turn(model.SenderUser, "one"),
		turn(model.SenderTeammate, "two"),
		turn(model.SenderUser, "three"),
		turn(model.SenderTeammate, "four"),
		turn(model.SenderUser, "five"),
	}

	query := alignment.BuildQuery(history, 4)
	gt.Equal(t, query, "Teammate: two\nUser: three\nTeammate: four\nUser: five")
	gt.S(t, query).NotContains("one")
}

func TestBuildQueryGuardianFilteredBeforeWindow(t *testing.T) {
	// Guardian turns must not consume window slots.
	history := []model.ConversationTurn{
		turn(model.SenderUser, "one"),
		turn(model.SenderGuardian, "alert a"),
		turn(model.SenderGuardian, "alert b"),
		turn(model.SenderTeammate, "two"),
		turn(model.SenderUser, "three"),
	}

	query := alignment.BuildQuery(history, 4)
	gt.Equal(t, query, "User: one\nTeammate: two\nUser: three")
}

func TestBuildQueryShortHistory(t *testing.T) {
	query := alignment.BuildQuery([]model.ConversationTurn{
		turn(model.SenderUser, "hello"),
	}, 4)
	gt.Equal(t, query, "User: hello")
}

func TestBuildQueryEmpty(t *testing.T) {
	gt.Equal(t, alignment.BuildQuery(nil, 4), "")
	gt.Equal(t, alignment.BuildQuery([]model.ConversationTurn{
		turn(model.SenderGuardian, "only alerts"),
	}, 4), "")
	gt.Equal(t, alignment.BuildQuery([]model.ConversationTurn{
		turn(model.SenderUser, "   "),
	}, 4), "")
}
