package analytics

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPopularProgramContainer(t *testing.T) {
	data := "program id;popularity\n\n4;0\n5;9\n6;9\n\n7;3\n8;0\n"
	container, err := ReadPopularProgramContainer(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 5, container.Len())
	assert.Equal(t, []uint32{4, 8}, container.Cluster(0))
	assert.Equal(t, []uint32{7}, container.Cluster(3))
	assert.Equal(t, []uint32{5, 6}, container.Cluster(9))
	for i := 0; i < NumberOfClusters; i++ {
		for _, id := range container.Cluster(i) {
			assert.Contains(t, []uint32{4, 5, 6, 7, 8}, id)
		}
	}
	assert.Nil(t, container.Cluster(10))
}

func TestReadPopularProgramContainerErrors(t *testing.T) {
	tests := []struct {
		data string
		err  error
	}{
		{"program id;popularity\n4;10\n", ErrPopularityClusterIdOutOfBounds},
		{"program id;popularity\n4;1000\n", ErrPopularityClusterIdOutOfBounds},
		{"program id;popularity\n4;x\n", nil},
		{"program id;popularity\n4\n", nil},
		{"id;cluster\n4;1\n", nil},
	}
	for _, test := range tests {
		_, err := ReadPopularProgramContainer(strings.NewReader(test.data))
		require.Error(t, err, test.data)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err, test.data)
		}
	}
}

func TestChooseWeightedByPopularity(t *testing.T) {
	var records []PopularityRecord
	for cluster := 0; cluster < NumberOfClusters; cluster++ {
		records = append(records, PopularityRecord{ProgramID: uint32(cluster), Cluster: uint8(cluster)})
	}
	container, err := NewPopularProgramContainer(records)
	require.NoError(t, err)

	const draws = 1023 * 200
	var (
		rng    = rand.New(rand.NewSource(1))
		counts [NumberOfClusters]int
	)
	for i := 0; i < draws; i++ {
		id, ok := container.ChooseWeightedByPopularity(rng)
		require.True(t, ok)
		counts[id]++
	}
	for cluster, count := range counts {
		expected := float64(draws) * float64(clusterWeights[cluster]) / 1023
		assert.InDelta(t, expected, float64(count), expected*0.2+50, "cluster %d", cluster)
	}
}

func TestChooseFromEmptyCluster(t *testing.T) {
	container, err := NewPopularProgramContainer([]PopularityRecord{{ProgramID: 45, Cluster: 9}})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(0))

	id, ok := container.ChooseMostPopular(rng)
	assert.True(t, ok)
	assert.Equal(t, uint32(45), id)

	_, ok = container.ChooseLeastPopular(rng)
	assert.False(t, ok)
	for i := 0; i < 100; i++ {
		_, ok = container.ChooseMediumPopular(rng)
		assert.False(t, ok)
	}
	misses := 0
	for i := 0; i < 1000; i++ {
		if _, ok := container.ChooseWeightedByPopularity(rng); !ok {
			misses++
		}
	}
	assert.Greater(t, misses, 0)
	assert.Less(t, misses, 1000)
}

func TestChooseMediumPopular(t *testing.T) {
	var records []PopularityRecord
	for cluster := 0; cluster < NumberOfClusters; cluster++ {
		records = append(records, PopularityRecord{ProgramID: uint32(cluster), Cluster: uint8(cluster)})
	}
	container, err := NewPopularProgramContainer(records)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		id, ok := container.ChooseMediumPopular(rng)
		require.True(t, ok)
		assert.GreaterOrEqual(t, id, uint32(1))
		assert.LessOrEqual(t, id, uint32(7))
	}
}

func TestChooseWeighted(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	assert.Equal(t, -1, ChooseWeighted(rng, nil))
	assert.Equal(t, -1, ChooseWeighted(rng, []uint64{0, 0}))
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, ChooseWeighted(rng, []uint64{0, 5, 0}))
	}
}
