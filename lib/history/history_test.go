package history

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/spamdash/lib/msgcheck"
)

func TestStore_BasicOps(t *testing.T) {
	s := NewStore(0)
	assert.Empty(t, s.All())
	assert.Equal(t, 0, s.Len())

	s.Append(Entry{Message: "win a prize", Prediction: msgcheck.LabelSpam})
	s.Append(Entry{Message: "lunch?", Prediction: msgcheck.LabelHam, Backend: "local"})
	s.Append(Entry{Message: "win a prize", Prediction: msgcheck.LabelSpam})

	all := s.All()
	require.Len(t, all, 3, "duplicates kept")
	assert.Equal(t, "win a prize", all[0].Message)
	assert.Equal(t, "lunch?", all[1].Message)
	assert.Equal(t, "local", all[1].Backend)
	assert.False(t, all[0].Time.IsZero(), "time set on append")

	assert.Equal(t, Counts{Spam: 2, Ham: 1, Total: 3}, s.Counts())

	spam := s.Filter(msgcheck.LabelSpam)
	assert.Len(t, spam, 2)
	ham := s.Filter(msgcheck.LabelHam)
	require.Len(t, ham, 1)
	assert.Equal(t, "lunch?", ham[0].Message)
	assert.Len(t, s.Filter(""), 3)

	all[0].Message = "changed"
	assert.Equal(t, "win a prize", s.All()[0].Message, "returned slice is a copy")

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Filter(msgcheck.LabelSpam))
}

func TestStore_Limit(t *testing.T) {
	s := NewStore(2)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := range 5 {
		s.Append(Entry{Message: fmt.Sprintf("msg%d", i), Prediction: msgcheck.LabelHam, Time: ts})
	}
	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "msg3", all[0].Message)
	assert.Equal(t, "msg4", all[1].Message)
	assert.Equal(t, ts, all[1].Time)
}

func TestStore_WriteCSV(t *testing.T) {
	s := NewStore(0)
	s.Append(Entry{Message: "WIN A FREE PRIZE, NOW!!!", Prediction: msgcheck.LabelSpam})
	s.Append(Entry{Message: `say "hi"`, Prediction: msgcheck.LabelHam})

	var buf bytes.Buffer
	require.NoError(t, s.WriteCSV(&buf, ""))
	assert.Equal(t, "Message,Prediction\n\"WIN A FREE PRIZE, NOW!!!\",SPAM\n\"say \"\"hi\"\"\",HAM\n", buf.String())

	buf.Reset()
	require.NoError(t, s.WriteCSV(&buf, msgcheck.LabelHam))
	assert.Equal(t, "Message,Prediction\n\"say \"\"hi\"\"\",HAM\n", buf.String())

	buf.Reset()
	require.NoError(t, NewStore(0).WriteCSV(&buf, ""))
	assert.Equal(t, "Message,Prediction\n", buf.String())
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(0)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				s.Append(Entry{Message: fmt.Sprintf("%d-%d", i, j), Prediction: msgcheck.LabelHam})
				_ = s.Counts()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, s.Len())
}
