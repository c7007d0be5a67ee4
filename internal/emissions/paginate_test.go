package emissions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// threePageClient serves 500, 500 and 200 records across three pages
func threePageClient() *stubClient {
	return &stubClient{
		fetch: func(req *QueryRequest) (*ResultPage, error) {
			switch req.PageToken {
			case "":
				return sequencedPage(0, 500, "t1"), nil
			case "t1":
				return sequencedPage(500, 500, "t2"), nil
			case "t2":
				return sequencedPage(1000, 200, ""), nil
			default:
				return nil, fmt.Errorf("unexpected page token %q", req.PageToken)
			}
		},
	}
}

func TestFetchAllThreePages(t *testing.T) {
	client := threePageClient()
	ds, stats, err := NewPaginator(client).FetchAll(context.Background(), validRequest(), 0)
	require.NoError(t, err)

	require.Equal(t, 1200, ds.Len())
	require.Equal(t, 3, stats.Pages)
	require.Equal(t, 1200, stats.Records)
	require.Equal(t, StopExhausted, stats.Reason)

	// Arrival order across pages
	require.Equal(t, "svc-0", ds.Items[0].Service)
	require.Equal(t, "svc-499", ds.Items[499].Service)
	require.Equal(t, "svc-500", ds.Items[500].Service)
	require.Equal(t, "svc-1199", ds.Items[1199].Service)

	// Metadata from the last page, dataset is terminal
	require.Equal(t, "req-1000", ds.RequestID)
	require.Empty(t, ds.NextPage)

	// Token and page size propagation
	require.Equal(t, 3, client.calls())
	for i, token := range []string{"", "t1", "t2"} {
		require.Equal(t, token, client.request(i).PageToken)
		require.Equal(t, MaxPageSize, client.request(i).Limit)
	}
}

func TestFetchAllRecordLimitAtPageBoundary(t *testing.T) {
	ds, stats, err := NewPaginator(threePageClient()).FetchAll(context.Background(), validRequest(), 1000)
	require.NoError(t, err)
	require.Equal(t, 1000, ds.Len())
	require.Equal(t, 2, stats.Pages)
	require.Equal(t, StopRecordLimit, stats.Reason)
}

func TestFetchAllRecordLimitMidPage(t *testing.T) {
	ds, stats, err := NewPaginator(threePageClient()).FetchAll(context.Background(), validRequest(), 1100)
	require.NoError(t, err)
	require.Equal(t, 1100, ds.Len())
	require.Equal(t, 3, stats.Pages)
	require.Equal(t, StopRecordLimit, stats.Reason)
	require.Equal(t, "svc-1099", ds.Items[1099].Service)
}

func TestFetchAllPartialOnMidStreamError(t *testing.T) {
	client := &stubClient{
		fetch: func(req *QueryRequest) (*ResultPage, error) {
			switch req.PageToken {
			case "":
				return sequencedPage(0, 500, "t1"), nil
			case "t1":
				return sequencedPage(500, 500, "t2"), nil
			default:
				return nil, errors.New("service melted")
			}
		},
	}

	ds, stats, err := NewPaginator(client).FetchAll(context.Background(), validRequest(), 0)
	require.NoError(t, err)
	require.Equal(t, 1000, ds.Len())
	require.Equal(t, 2, stats.Pages)
	require.Equal(t, StopErrorPartial, stats.Reason)
}

func TestFetchAllFirstPageError(t *testing.T) {
	boom := errors.New("connection refused")
	client := &stubClient{
		fetch: func(req *QueryRequest) (*ResultPage, error) { return nil, boom },
	}

	ds, _, err := NewPaginator(client).FetchAll(context.Background(), validRequest(), 0)
	require.ErrorIs(t, err, boom)
	require.Nil(t, ds)
}

func TestFetchAllPageCeiling(t *testing.T) {
	client := &stubClient{
		fetch: func(req *QueryRequest) (*ResultPage, error) {
			// Token never runs out
			return sequencedPage(0, 1, "again"), nil
		},
	}

	ds, stats, err := NewPaginator(client).FetchAll(context.Background(), validRequest(), 0)
	require.NoError(t, err)
	require.Equal(t, MaxPageCeiling, stats.Pages)
	require.Equal(t, MaxPageCeiling, ds.Len())
	require.Equal(t, StopPageLimit, stats.Reason)
}

func TestFetchAllInterruptedKeepsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &stubClient{}
	client.fetch = func(req *QueryRequest) (*ResultPage, error) {
		switch req.PageToken {
		case "":
			return sequencedPage(0, 500, "t1"), nil
		case "t1":
			// Simulates the user hitting Ctrl-C mid-run
			cancel()
			return sequencedPage(500, 500, "t2"), nil
		default:
			return nil, errors.New("should not be reached")
		}
	}

	ds, stats, err := NewPaginator(client).FetchAll(ctx, validRequest(), 0)
	require.NoError(t, err)
	require.Equal(t, 1000, ds.Len())
	require.Equal(t, StopInterrupted, stats.Reason)
}

func TestFetchAllCancelledBeforeFirstPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds, _, err := NewPaginator(threePageClient()).FetchAll(ctx, validRequest(), 0)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, ds)
}

func TestFetchAllRespectsRequestedPageSize(t *testing.T) {
	client := &stubClient{
		fetch: func(req *QueryRequest) (*ResultPage, error) {
			return sequencedPage(0, 100, ""), nil
		},
	}

	base := validRequest().WithLimit(100)
	_, stats, err := NewPaginator(client).FetchAll(context.Background(), base, 0)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Pages)
	require.Equal(t, 100, client.request(0).Limit)
}

func TestFetchAllFollowsTokenOnEmptyPage(t *testing.T) {
	client := &stubClient{
		fetch: func(req *QueryRequest) (*ResultPage, error) {
			if req.PageToken == "" {
				return &ResultPage{NextPage: "t1"}, nil
			}
			return sequencedPage(0, 5, ""), nil
		},
	}

	ds, stats, err := NewPaginator(client).FetchAll(context.Background(), validRequest(), 0)
	require.NoError(t, err)
	require.Equal(t, 5, ds.Len())
	require.Equal(t, 2, stats.Pages)
	require.Equal(t, StopExhausted, stats.Reason)
}
