package storage

// DiskStatFunc 返回 path 所在文件系统的磁盘情况
type DiskStatFunc func(path string) (*DiskUsage, error)

// DiskGuard 磁盘空间预检, 每次请求都重新读取
type DiskGuard struct {
	floorMB float64
	stat    DiskStatFunc
}

// NewDiskGuard 创建磁盘检查器, stat 为 nil 时使用 statfs
func NewDiskGuard(floorMB int, stat DiskStatFunc) *DiskGuard {
	if stat == nil {
		stat = CheckDiskSpace
	}
	return &DiskGuard{
		floorMB: float64(floorMB),
		stat:    stat,
	}
}

// Check 可用空间低于下限时 ok 为 false
func (g *DiskGuard) Check(path string) (bool, float64, error) {
	usage, err := g.stat(path)
	if err != nil {
		return false, 0, err
	}
	freeMB := usage.FreeMB()
	return freeMB >= g.floorMB, freeMB, nil
}

// FloorMB 可用空间下限
func (g *DiskGuard) FloorMB() float64 {
	return g.floorMB
}
