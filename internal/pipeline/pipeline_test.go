package pipeline_test

import (
	"context"
	"testing"

	"github.com/jroosing/dnsforward/internal/dnswire"
	"github.com/jroosing/dnsforward/internal/pipeline"
	"github.com/jroosing/dnsforward/internal/pipeline/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func supportedQuery(name string) dnswire.Query {
	return dnswire.Query{
		ID:      0x1234,
		Flags:   dnswire.FlagRD,
		QDCount: 1,
		Question: dnswire.Question{
			Name:  name,
			Type:  dnswire.TypeA,
			Class: dnswire.ClassIN,
		},
	}
}

func TestDomainFilterBlocksWithSOA(t *testing.T) {
	ctrl := gomock.NewController(t)
	bl := mocks.NewMockBlocklist(ctrl)
	bl.EXPECT().Contains("blocked.example.com").Return(true)

	called := false
	next := func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		called = true
		return dnswire.Answer{}, nil
	}

	stage := pipeline.DomainFilter{Blocklist: bl}
	answer, err := stage.Handle(context.Background(), supportedQuery("blocked.example.com"), next)

	require.NoError(t, err)
	require.False(t, called)
	require.Equal(t, dnswire.KindSOA, answer.Kind)
	require.Equal(t, uint16(0x1234), answer.ID)
	require.Equal(t, "dns17.hichina.com", answer.SOA.PrimaryNS)
}

func TestDomainFilterPassesThroughWhenNotBlocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	bl := mocks.NewMockBlocklist(ctrl)
	bl.EXPECT().Contains("example.com").Return(false)

	next := func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		return dnswire.NewFailureAnswer(q.ID, q.Question), nil
	}

	stage := pipeline.DomainFilter{Blocklist: bl}
	answer, err := stage.Handle(context.Background(), supportedQuery("example.com"), next)

	require.NoError(t, err)
	require.Equal(t, dnswire.KindFailure, answer.Kind)
}

func TestLegalityCheckBypassesCacheForUnsupportedQuery(t *testing.T) {
	dispatched := false
	dispatcher := pipeline.SenderFunc(func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		dispatched = true
		return dnswire.NewIPv4Answer(q.ID, q.Question, nil), nil
	})

	nextCalled := false
	next := func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		nextCalled = true
		return dnswire.Answer{}, nil
	}

	unsupported := supportedQuery("example.com")
	unsupported.Question.Type = dnswire.TypeCNAME

	stage := pipeline.LegalityCheck{Dispatcher: dispatcher}
	_, err := stage.Handle(context.Background(), unsupported, next)

	require.NoError(t, err)
	require.True(t, dispatched)
	require.False(t, nextCalled)
}

func TestLegalityCheckCallsNextForSupportedQuery(t *testing.T) {
	dispatcher := pipeline.SenderFunc(func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		t.Fatal("dispatcher must not be called for a supported query")
		return dnswire.Answer{}, nil
	})

	nextCalled := false
	next := func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		nextCalled = true
		return dnswire.Answer{}, nil
	}

	stage := pipeline.LegalityCheck{Dispatcher: dispatcher}
	_, err := stage.Handle(context.Background(), supportedQuery("example.com"), next)

	require.NoError(t, err)
	require.True(t, nextCalled)
}

func TestIPSelectKeepsProbeWinner(t *testing.T) {
	ctrl := gomock.NewController(t)
	prober := mocks.NewMockProber(ctrl)
	prober.EXPECT().Probe(gomock.Any(), gomock.Any()).Return(1, nil)

	next := func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		return dnswire.NewIPv4Answer(q.ID, q.Question, []dnswire.IPv4Answer{
			{Name: q.Question.Name, TTL: 30, Addr: [4]byte{1, 1, 1, 1}},
			{Name: q.Question.Name, TTL: 30, Addr: [4]byte{2, 2, 2, 2}},
		}), nil
	}

	stage := pipeline.IPSelect{Prober: prober}
	answer, err := stage.Handle(context.Background(), supportedQuery("example.com"), next)

	require.NoError(t, err)
	require.Len(t, answer.IPv4, 1)
	require.Equal(t, [4]byte{2, 2, 2, 2}, answer.IPv4[0].Addr)
}

func TestIPSelectSkipsSingleAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	prober := mocks.NewMockProber(ctrl) // no calls expected

	next := func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		return dnswire.NewIPv4Answer(q.ID, q.Question, []dnswire.IPv4Answer{
			{Name: q.Question.Name, TTL: 30, Addr: [4]byte{1, 1, 1, 1}},
		}), nil
	}

	stage := pipeline.IPSelect{Prober: prober}
	answer, err := stage.Handle(context.Background(), supportedQuery("example.com"), next)

	require.NoError(t, err)
	require.Len(t, answer.IPv4, 1)
	require.Equal(t, [4]byte{1, 1, 1, 1}, answer.IPv4[0].Addr)
}

func TestIPFirstKeepsFirstAddress(t *testing.T) {
	next := func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		return dnswire.NewIPv4Answer(q.ID, q.Question, []dnswire.IPv4Answer{
			{Name: q.Question.Name, TTL: 30, Addr: [4]byte{3, 3, 3, 3}},
			{Name: q.Question.Name, TTL: 30, Addr: [4]byte{4, 4, 4, 4}},
		}), nil
	}

	stage := pipeline.IPFirst{}
	answer, err := stage.Handle(context.Background(), supportedQuery("example.com"), next)

	require.NoError(t, err)
	require.Len(t, answer.IPv4, 1)
	require.Equal(t, [4]byte{3, 3, 3, 3}, answer.IPv4[0].Addr)
}

func TestCacheLookupDelegatesToPool(t *testing.T) {
	fake := &fakeCachePool{answer: dnswire.NewIPv4Answer(0, dnswire.Question{}, []dnswire.IPv4Answer{
		{Name: "example.com", TTL: 30, Addr: [4]byte{5, 5, 5, 5}},
	})}

	next := func(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
		t.Fatal("cache stage's upstream func should only run through Pool.Lookup")
		return dnswire.Answer{}, nil
	}

	stage := pipeline.CacheLookup{Pool: fake}
	answer, err := stage.Handle(context.Background(), supportedQuery("example.com"), next)

	require.NoError(t, err)
	require.Equal(t, dnswire.KindIPv4, answer.Kind)
	require.Equal(t, "example.com", fake.gotKey)
}

type fakeCachePool struct {
	answer dnswire.Answer
	gotKey string
}

func (f *fakeCachePool) Lookup(ctx context.Context, id uint16, q dnswire.Question, key string, upstream func(ctx context.Context) (dnswire.Answer, error)) (dnswire.Answer, error) {
	f.gotKey = key
	return f.answer.WithID(id), nil
}

func TestChainRunsStagesInOrder(t *testing.T) {
	var order []string

	mark := func(name string) pipeline.StageFunc {
		return func(ctx context.Context, q dnswire.Query, next pipeline.Continuation) (dnswire.Answer, error) {
			order = append(order, name)
			return next(ctx, q)
		}
	}

	terminal := pipeline.StageFunc(func(ctx context.Context, q dnswire.Query, next pipeline.Continuation) (dnswire.Answer, error) {
		order = append(order, "terminal")
		return dnswire.NewFailureAnswer(q.ID, q.Question), nil
	})

	chain := pipeline.New(mark("a"), mark("b"), terminal)
	_, err := chain.Run(context.Background(), supportedQuery("example.com"))

	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "terminal"}, order)
}
